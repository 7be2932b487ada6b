package script

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFilename(t *testing.T) {
	ts := time.Date(2024, 3, 7, 4, 5, 9, 0, time.UTC)

	name, stamp := BackupFilename("i-0abc", ts)

	assert.Equal(t, "openvpn_backup_i-0abc_20240307_040509.tar.gz", name)
	assert.Equal(t, "20240307_040509", stamp)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}$`), stamp)
}

func TestBackupFilename_UsesUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2024, 3, 7, 1, 0, 0, 0, loc)

	_, stamp := BackupFilename("i-1", ts)

	assert.Equal(t, "20240307_000000", stamp)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "backups/openvpn_backup_i-1_20240101_000000.tar.gz",
		ObjectKey("openvpn_backup_i-1_20240101_000000.tar.gz"))
}

func TestBuild(t *testing.T) {
	s, err := Build(Params{Bucket: "vpn-backups", BackupFile: "openvpn_backup_i-1_20240101_000000.tar.gz"})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "#!/bin/bash\nset -e\n"))
	assert.Contains(t, s, `BACKUP_FILE="/tmp/openvpn_backup_i-1_20240101_000000.tar.gz"`)
	assert.Contains(t, s, "sacli --output_format=json ConfigBackup")
	assert.Contains(t, s, "userprop.db")
	assert.Contains(t, s, "log.db")
	assert.Contains(t, s, "/etc/letsencrypt/live")
	assert.Contains(t, s, "tar -czf")
	assert.Contains(t, s, `aws s3 cp "$BACKUP_FILE" "s3://vpn-backups/backups/openvpn_backup_i-1_20240101_000000.tar.gz"`)
	assert.Contains(t, s, `rm -rf "$BACKUP_FILE" "$BACKUP_DIR"`)
	assert.NotContains(t, s, "--endpoint-url")
}

func TestBuild_WithEndpoint(t *testing.T) {
	s, err := Build(Params{Bucket: "b", BackupFile: "f.tar.gz", Endpoint: "https://minio.internal:9000"})

	require.NoError(t, err)
	assert.Contains(t, s, `--endpoint-url "https://minio.internal:9000"`)
}

func TestBuild_MissingFields(t *testing.T) {
	_, err := Build(Params{BackupFile: "f.tar.gz"})
	assert.Error(t, err)

	_, err = Build(Params{Bucket: "b"})
	assert.Error(t, err)
}

func TestBuild_UploadsUnderKeyPrefix(t *testing.T) {
	name, _ := BackupFilename("i-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	s, err := Build(Params{Bucket: "b", BackupFile: name})

	require.NoError(t, err)
	assert.Contains(t, s, `"s3://b/`+ObjectKey(name)+`"`)
	assert.True(t, strings.HasPrefix(ObjectKey(name), KeyPrefix))
}
