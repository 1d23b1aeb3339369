// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestReactorReportsReadyFD(t *testing.T) {
	r, err := newReactor()
	if err != nil {
		t.Fatalf("newReactor: %v", err)
	}
	defer r.close()

	rPipe, wPipe, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer rPipe.Close()
	defer wPipe.Close()

	fd := int(rPipe.Fd())
	if err := r.add(fd); err != nil {
		t.Fatalf("add: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events := make(chan int, 1)
	go r.run(ctx, events)

	if _, err := wPipe.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case got := <-events:
		if got != fd {
			t.Fatalf("got fd %d, want %d", got, fd)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for reactor to report readiness")
	}

	if err := r.remove(fd); err != nil {
		t.Fatalf("remove: %v", err)
	}
}
