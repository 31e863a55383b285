package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/membase/pkg/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "s3", cfg.ObjectStore.Provider)
	assert.Equal(t, 7, cfg.Archive.HotDays)
	assert.Equal(t, 180, cfg.Archive.ColdDays)
	assert.Equal(t, 1095, cfg.Archive.DeepDays)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MEMBASE_DB_DRIVER", "sqlite")
	t.Setenv("MEMBASE_STORE_BUCKET", "memories")
	t.Setenv("MEMBASE_ARCHIVE_HOT_DAYS", "14")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memories", cfg.ObjectStore.Bucket)
	assert.Equal(t, 14, cfg.Archive.HotDays)
}

func TestLoadConfigBadIntFallsBack(t *testing.T) {
	t.Setenv("MEMBASE_ARCHIVE_COLD_DAYS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 180, cfg.Archive.ColdDays)
}

func TestLoadFileOverlaysEnv(t *testing.T) {
	t.Setenv("MEMBASE_STORE_BUCKET", "from-env")

	path := filepath.Join(t.TempDir(), "membase.yaml")
	body := `
database:
  driver: sqlite
  dsn: ":memory:"
object_store:
  provider: bos
  endpoint: bj.bcebos.com
  bucket: from-file
  access_key_id: ak
  secret_access_key: sk
archive:
  hot_days: 3
  interval: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "bos", cfg.ObjectStore.Provider)
	assert.Equal(t, "from-file", cfg.ObjectStore.Bucket)
	assert.Equal(t, 3, cfg.Archive.HotDays)
	assert.Equal(t, 30*time.Minute, cfg.Archive.IntervalDuration())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestArchivePolicyConversion(t *testing.T) {
	a := ArchiveConfig{HotDays: 7, ColdDays: 180, DeepDays: 1095}
	p := a.Policy()

	assert.Equal(t, types.DefaultHotWindow, p.HotWindow)
	assert.Equal(t, types.DefaultColdWindow, p.ColdWindow)
	assert.Equal(t, types.DefaultDeepWindow, p.DeepWindow)

	// Zero-valued config normalizes to the defaults rather than producing a
	// policy that archives everything immediately.
	var zero ArchiveConfig
	assert.Equal(t, types.DefaultHotWindow, zero.Policy().HotWindow)
}

func TestIntervalFallback(t *testing.T) {
	a := ArchiveConfig{Interval: "garbage"}
	assert.Equal(t, time.Hour, a.IntervalDuration())
}
