package main

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage_Memory(t *testing.T) {
	s, err := openStorage(context.Background(), &config.Config{Store: config.StoreMemory}, logging.NewNop())
	require.NoError(t, err)
	defer s.close()

	assert.NotNil(t, s.store)
	assert.Nil(t, s.locker)
}

func TestOpenStorage_FileEncrypted(t *testing.T) {
	dir := t.TempDir()
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 32)))
	cfg := &config.Config{Store: config.StoreFile, FileDir: dir, EncryptionKey: key}

	s, err := openStorage(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer s.close()

	ctx := context.Background()
	sess := domain.NewSession("7", time.Now())
	sess.Answers = []domain.Answer{{Field: "number", Value: "+998901234567"}}
	require.NoError(t, s.store.Set(ctx, "7", sess))

	raw, err := os.ReadFile(dir + "/7.json")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "+998901234567")

	got, err := s.store.Get(ctx, "7")
	require.NoError(t, err)
	v, _ := got.Answer("number")
	assert.Equal(t, "+998901234567", v)
}

func TestOpenStorage_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{Store: config.StoreRedis, RedisAddr: mr.Addr(), SessionTTL: time.Hour}

	s, err := openStorage(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer s.close()

	assert.NotNil(t, s.locker)
	require.NoError(t, s.store.Set(context.Background(), "1", domain.NewSession("1", time.Now())))
	assert.True(t, mr.Exists("intake:session:1"))
}

func TestOpenStorage_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := openStorage(context.Background(), &config.Config{Store: config.StoreRedis, RedisAddr: addr}, logging.NewNop())
	assert.Error(t, err)
}
