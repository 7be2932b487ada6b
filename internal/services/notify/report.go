package notify

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fgeck/openvpn-backup/internal/models"
)

// FailureMarker is appended to the subject when any backup failed.
const FailureMarker = " - FAILURES DETECTED"

// maxSubjectLength is the SNS limit for email subjects, in characters.
const maxSubjectLength = 100

// BuildReport renders the summary for a run.
func BuildReport(namePrefix string, results []models.BackupResult, now time.Time) models.Notification {
	var successful, failed, skipped []models.BackupResult
	for _, r := range results {
		switch {
		case r.Status == models.StatusSuccess:
			successful = append(successful, r)
		case r.Failed():
			failed = append(failed, r)
		case r.Status == models.StatusSkipped:
			skipped = append(skipped, r)
		}
	}

	subject := reportSubject(namePrefix, len(failed) > 0)

	var b strings.Builder
	fmt.Fprintf(&b, "OpenVPN Backup Report for %s\n", namePrefix)
	fmt.Fprintf(&b, "Execution Time: %s UTC\n", now.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString("\n")
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- Successful: %d\n", len(successful))
	fmt.Fprintf(&b, "- Failed: %d\n", len(failed))
	fmt.Fprintf(&b, "- Skipped: %d\n", len(skipped))
	b.WriteString("\n")

	writeSection(&b, "Successful Backups:", successful, func(r models.BackupResult) string {
		return orDefault(r.BackupFile, "N/A")
	})
	writeSection(&b, "Failed Backups:", failed, func(r models.BackupResult) string {
		return orDefault(r.Error, "Unknown error")
	})
	writeSection(&b, "Skipped Backups:", skipped, func(r models.BackupResult) string {
		return orDefault(r.Reason, "Unknown reason")
	})

	b.WriteString("This is an automated message from the OpenVPN backup system.\n")
	b.WriteString("Please check the AWS Lambda logs for detailed information.")

	return models.Notification{
		Subject: subject,
		Body:    b.String(),
		Failed:  len(failed) > 0,
	}
}

// reportSubject shortens the prefix part so that the failure marker always
// survives the subject length limit.
func reportSubject(namePrefix string, failed bool) string {
	subject := "OpenVPN Backup Report - " + namePrefix
	if !failed {
		return truncateRunes(subject, maxSubjectLength)
	}
	return truncateRunes(subject, maxSubjectLength-utf8.RuneCountInString(FailureMarker)) + FailureMarker
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func writeSection(b *strings.Builder, title string, results []models.BackupResult, detail func(models.BackupResult) string) {
	if len(results) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, r := range results {
		fmt.Fprintf(b, "- Instance %s: %s\n", r.InstanceID, detail(r))
	}
	b.WriteString("\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
