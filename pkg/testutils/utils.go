package testutils

import (
	"crypto/rand"
	"math/big"
	"os"
	"testing"
)

const (
	PostgresDSNEnv = "CHATRAG_TEST_POSTGRES_DSN"
	QdrantURLEnv   = "CHATRAG_TEST_QDRANT_URL"
)

// PostgresDSN returns the integration test DSN or skips the test when none is set.
func PostgresDSN(t testing.TB) string {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	return dsn
}

// QdrantURL returns the integration test Qdrant URL or skips the test when none is set.
func QdrantURL(t testing.TB) string {
	t.Helper()
	url := os.Getenv(QdrantURLEnv)
	if url == "" {
		t.Skipf("%s not set", QdrantURLEnv)
	}
	return url
}

const charset = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func GenerateRandomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		bigInt, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		b[i] = charset[bigInt.Int64()]
	}
	return string(b)
}
