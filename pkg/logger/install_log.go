package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// InstallLog appends the process output of one install job to the daily
// install-YYYYMMDD.log, framed by header and footer markers
type InstallLog struct {
	file *os.File
	mu   sync.Mutex
}

// OpenInstallLog opens today's install log in logsDir and writes the start marker
func OpenInstallLog(logsDir, installID, framework string) (*InstallLog, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	dateStr := time.Now().Format("20060102")
	path := filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", CategoryInstall, dateStr))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	l := &InstallLog{file: file}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.write(fmt.Sprintf("\n=== [%s] Install %s: %s ===\n", timestamp, framework, installID))
	return l, nil
}

// Printf appends one line of process output
func (l *InstallLog) Printf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.write(fmt.Sprintf(format, args...) + "\n")
}

// Command records a command line that is about to be run
func (l *InstallLog) Command(cmdLine string) {
	l.Printf("$ %s", cmdLine)
}

// Finish writes the end marker and closes the file
func (l *InstallLog) Finish(success bool, message string) error {
	if l == nil {
		return nil
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	l.write(fmt.Sprintf("[%s] %s: %s\n=== END ===\n\n", timestamp, status, message))

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *InstallLog) write(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.WriteString(s)
}
