// Package cloudlog takes care of setting up a Google Cloud logger. Until Init succeeds every call
// only goes to the standard logger, so packages can log from tests and local runs without credentials.
package cloudlog

import (
	"context"
	"fmt"
	"log"
	"sync"

	logging "cloud.google.com/go/logging"
)

var (
	// Logger is an already set up instance of *log.Logger
	Logger *log.Logger

	mu      sync.RWMutex
	client  *logging.Client
	working bool
)

// Init connects to Cloud Logging for projectID and writes entries under logName.
func Init(ctx context.Context, projectID, logName string) error {
	c, err := logging.NewClient(ctx, projectID)
	if err != nil {
		log.Print("Failed to create logging client")
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	client = c
	Logger = c.Logger(logName).StandardLogger(logging.Info)
	working = true
	return nil
}

// Close flushes buffered entries and releases the client.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if client == nil {
		return nil
	}
	working = false
	err := client.Close()
	client = nil
	return err
}

func cloud() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !working {
		return nil
	}
	return Logger
}

// Print is a proxy for Logger.Print
func Print(v ...interface{}) {
	log.Print(v...)
	if l := cloud(); l != nil {
		l.Print(v...)
	}
}

// Println is a proxy for Logger.Println
func Println(v ...interface{}) {
	log.Println(v...)
	if l := cloud(); l != nil {
		l.Println(v...)
	}
}

// Printf is a proxy for Logger.Printf
func Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
	if l := cloud(); l != nil {
		l.Printf(format, v...)
	}
}

// Fatal flushes the cloud entry before exiting through the standard logger.
func Fatal(v ...interface{}) {
	if l := cloud(); l != nil {
		l.Print(v...)
		Close()
	}
	log.Fatal(v...)
}

// Fatalf flushes the cloud entry before exiting through the standard logger.
func Fatalf(format string, v ...interface{}) {
	if l := cloud(); l != nil {
		l.Print(fmt.Sprintf(format, v...))
		Close()
	}
	log.Fatalf(format, v...)
}
