// Package script renders the shell script that backs up an OpenVPN Access Server.
package script

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// TimestampFormat is the layout of the timestamp embedded in archive names.
const TimestampFormat = "20060102_150405"

// KeyPrefix is the object storage prefix all archives are uploaded under.
const KeyPrefix = "backups/"

// Params are the values substituted into the backup script.
type Params struct {
	Bucket     string
	BackupFile string
	Endpoint   string // optional --endpoint-url for S3 compatible storage
}

// BackupFilename returns the archive name for an instance at time t.
func BackupFilename(instanceID string, t time.Time) (name, timestamp string) {
	timestamp = t.UTC().Format(TimestampFormat)
	return fmt.Sprintf("openvpn_backup_%s_%s.tar.gz", instanceID, timestamp), timestamp
}

// ObjectKey returns the object storage key for an archive name.
func ObjectKey(backupFile string) string {
	return KeyPrefix + backupFile
}

var backupTemplate = template.Must(template.New("backup").Parse(`#!/bin/bash
set -e
BACKUP_FILE="/tmp/{{ .BackupFile }}"
BACKUP_DIR="/tmp/openvpn_backup_$(date +%Y%m%d_%H%M%S)"
mkdir -p $BACKUP_DIR

# Configuration
/usr/local/openvpn_as/scripts/sacli --output_format=json ConfigBackup > $BACKUP_DIR/config_backup.json

# User and log databases
cp /usr/local/openvpn_as/etc/db/userprop.db $BACKUP_DIR/ 2>/dev/null || echo "User database not found"
cp /usr/local/openvpn_as/etc/db/log.db $BACKUP_DIR/ 2>/dev/null || echo "Log database not found"

# TLS certificates
mkdir -p $BACKUP_DIR/ssl
cp -r /usr/local/openvpn_as/etc/web-ssl/* $BACKUP_DIR/ssl/ 2>/dev/null || echo "SSL certificates not found"

if [ -d "/etc/letsencrypt/live" ]; then
    mkdir -p $BACKUP_DIR/letsencrypt
    cp -r /etc/letsencrypt/live/* $BACKUP_DIR/letsencrypt/ 2>/dev/null || echo "Let's Encrypt certificates not found"
fi

# System info
echo "Backup created on: $(date)" > $BACKUP_DIR/backup_info.txt
echo "Instance ID: $(curl -s http://169.254.169.254/latest/meta-data/instance-id)" >> $BACKUP_DIR/backup_info.txt
echo "Public IP: $(curl -s http://169.254.169.254/latest/meta-data/public-ipv4)" >> $BACKUP_DIR/backup_info.txt
echo "OpenVPN Version: $(/usr/local/openvpn_as/scripts/sacli --version)" >> $BACKUP_DIR/backup_info.txt

cd /tmp
tar -czf "$BACKUP_FILE" "$(basename $BACKUP_DIR)"

aws s3 cp "$BACKUP_FILE" "s3://{{ .Bucket }}/{{ .Key }}"{{ if .Endpoint }} --endpoint-url "{{ .Endpoint }}"{{ end }}

rm -rf "$BACKUP_FILE" "$BACKUP_DIR"

echo "Backup completed successfully: {{ .BackupFile }}"
`))

// Build renders the backup script.
func Build(p Params) (string, error) {
	if p.Bucket == "" {
		return "", fmt.Errorf("bucket is required")
	}
	if p.BackupFile == "" {
		return "", fmt.Errorf("backup file name is required")
	}

	data := struct {
		Params
		Key string
	}{Params: p, Key: ObjectKey(p.BackupFile)}

	var b bytes.Buffer
	if err := backupTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering backup script: %w", err)
	}
	return b.String(), nil
}
