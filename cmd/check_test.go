// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mlspace/mlspace/logging"
	"github.com/mlspace/mlspace/util/test"
)

func TestCheck(t *testing.T) {
	files := map[string]string{
		"/models/a.mls":        cellsModel,
		"/models/sub/b.mls":    "S(x: [0..3]); for i = 0:3 { 1 S(x: i) };",
		"/models/.draft/c.mls": "S(); 1 T;",
	}

	tests := []struct {
		note    string
		ignore  []string
		set     []string
		wantErr string
	}{
		{note: "ignored draft", ignore: []string{".*"}},
		{note: "draft", wantErr: "species T is not defined"},
		{note: "override breaks count", ignore: []string{".*"}, set: []string{"k=red"}, wantErr: "a.mls"},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			test.WithTempFS(files, func(path string) {
				params := newCheckParams()
				params.ignore = tc.ignore
				params.set = tc.set
				err := checkModels(&params, []string{filepath.Join(path, "models")}, logging.NewNoOpLogger())
				if tc.wantErr == "" {
					if err != nil {
						t.Fatalf("Unexpected error: %v", err)
					}
					return
				}
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tc.wantErr, err)
				}
			})
		})
	}
}

// syncBuffer guards the output written by the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCheckWatch(t *testing.T) {
	files := map[string]string{
		"/a.mls": cellsModel,
	}

	test.WithTempFS(files, func(path string) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		params := newCheckParams()
		stdout := &syncBuffer{}
		if err := checkWatch(ctx, &params, []string{path}, stdout, logging.NewNoOpLogger()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(stdout.String(), "1 model(s) checked in") {
			t.Fatalf("Expected initial check to be reported, got %q", stdout.String())
		}
	})
}
