package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func mustNew(t *testing.T, capacity int) *Channel {
	t.Helper()
	c, err := New(capacity)
	if err != nil {
		t.Fatalf("New(%d): %v", capacity, err)
	}
	return c
}

// waitUsed polls until the channel holds exactly n unread bytes.
func waitUsed(t *testing.T, c *Channel, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.Used() != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for used == %d (used == %d)", n, c.Used())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewInvalidCapacity(t *testing.T) {
	if _, err := New(0); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("New(0) err = %v, want ErrInvalidCapacity", err)
	}
}

func TestNonBlockingReadEmpty(t *testing.T) {
	c := mustNew(t, 8)
	n, err := c.Read(context.Background(), make([]byte, 4), false)
	if n != 0 || !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("Read on empty channel = (%d, %v), want (0, ErrWouldBlock)", n, err)
	}
}

func TestNonBlockingWriteFull(t *testing.T) {
	c := mustNew(t, 4)
	if n, err := c.Write(context.Background(), []byte("abcd"), false); n != 4 || err != nil {
		t.Fatalf("fill write = (%d, %v)", n, err)
	}
	n, err := c.Write(context.Background(), []byte("e"), false)
	if n != 0 || !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("Write on full channel = (%d, %v), want (0, ErrWouldBlock)", n, err)
	}
	// Nothing was dropped: the original four bytes are intact.
	buf := make([]byte, 4)
	if n, err := c.Read(context.Background(), buf, false); n != 4 || err != nil || string(buf) != "abcd" {
		t.Fatalf("Read back = (%d, %v, %q)", n, err, buf[:n])
	}
}

func TestFIFORoundTrip(t *testing.T) {
	c := mustNew(t, 64)
	ctx := context.Background()
	writes := [][]byte{[]byte("one"), []byte("two,"), []byte(" three")}
	var want []byte
	for _, w := range writes {
		if n, err := c.Write(ctx, w, true); n != len(w) || err != nil {
			t.Fatalf("Write(%q) = (%d, %v)", w, n, err)
		}
		want = append(want, w...)
	}
	got := make([]byte, len(want))
	if n, err := c.Read(ctx, got, true); n != len(want) || err != nil {
		t.Fatalf("Read = (%d, %v), want %d bytes", n, err, len(want))
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("read %q, want %q", got, want)
	}
}

func TestShortRead(t *testing.T) {
	c := mustNew(t, 16)
	ctx := context.Background()
	c.Write(ctx, []byte("abc"), true)
	buf := make([]byte, 10)
	n, err := c.Read(ctx, buf, true)
	if n != 3 || err != nil {
		t.Fatalf("Read = (%d, %v), want short read of 3", n, err)
	}
}

func TestNonBlockingPartialWrite(t *testing.T) {
	c := mustNew(t, 4)
	ctx := context.Background()
	n, err := c.Write(ctx, []byte("abcdef"), false)
	if n != 4 || err != nil {
		t.Fatalf("partial write = (%d, %v), want (4, nil)", n, err)
	}
	buf := make([]byte, 4)
	c.Read(ctx, buf, true)
	if string(buf) != "abcd" {
		t.Fatalf("buffered %q, want \"abcd\"", buf)
	}
}

func TestBlockedReaderWokenByWriter(t *testing.T) {
	c := mustNew(t, 16)
	ctx := context.Background()

	type result struct {
		n   int
		err error
		buf []byte
	}
	done := make(chan result, 1)
	go func() {
		buf := make([]byte, 16)
		n, err := c.Read(ctx, buf, true)
		done <- result{n, err, buf[:n]}
	}()

	// Give the reader time to park on the readable queue.
	time.Sleep(10 * time.Millisecond)
	if n, err := c.Write(ctx, []byte("hello"), true); n != 5 || err != nil {
		t.Fatalf("Write = (%d, %v)", n, err)
	}

	select {
	case r := <-done:
		if r.err != nil || r.n != 5 || string(r.buf) != "hello" {
			t.Fatalf("reader got (%d, %v, %q), want (5, nil, \"hello\")", r.n, r.err, r.buf)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader never woke up")
	}
}

func TestBlockedWriterWokenByReader(t *testing.T) {
	c := mustNew(t, 4)
	ctx := context.Background()
	c.Write(ctx, []byte("abcd"), true)

	done := make(chan error, 1)
	go func() {
		n, err := c.Write(ctx, []byte("ef"), true)
		if err == nil && n != 2 {
			err = fmt.Errorf("wrote %d bytes, want 2", n)
		}
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	buf := make([]byte, 2)
	if n, err := c.Read(ctx, buf, true); n != 2 || err != nil {
		t.Fatalf("Read = (%d, %v)", n, err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("blocked writer: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("writer never woke up")
	}

	rest := make([]byte, 4)
	if n, _ := c.Read(ctx, rest, true); string(rest[:n]) != "cdef" {
		t.Fatalf("remaining bytes %q, want \"cdef\"", rest[:n])
	}
}

func TestInterruptedRead(t *testing.T) {
	c := mustNew(t, 8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		n, err := c.Read(ctx, make([]byte, 8), true)
		if n != 0 {
			err = fmt.Errorf("interrupted read consumed %d bytes", n)
		}
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrInterrupted) {
			t.Fatalf("err = %v, want ErrInterrupted", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled reader never returned")
	}
}

func TestInterruptedWriteReportsPartialProgress(t *testing.T) {
	c := mustNew(t, 4)
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := c.Write(ctx, []byte("abcdefgh"), true)
		done <- result{n, err}
	}()

	// The writer commits the first four bytes, then parks for space.
	waitUsed(t, c, 4)
	cancel()

	select {
	case r := <-done:
		if !errors.Is(r.err, ErrInterrupted) {
			t.Fatalf("err = %v, want ErrInterrupted", r.err)
		}
		if r.n != 4 {
			t.Fatalf("reported %d bytes, want the durable prefix of 4", r.n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled writer never returned")
	}

	// The prefix really is in the buffer.
	buf := make([]byte, 4)
	if n, err := c.Read(context.Background(), buf, true); n != 4 || err != nil || string(buf) != "abcd" {
		t.Fatalf("Read = (%d, %v, %q), want the written prefix", n, err, buf[:n])
	}
}

func TestFullChannelScenario(t *testing.T) {
	// Capacity 4: AB, CD (full), non-blocking E refused, read 1 = A,
	// E lands, remaining read = BCDE.
	c := mustNew(t, 4)
	ctx := context.Background()

	if n, err := c.Write(ctx, []byte("AB"), true); n != 2 || err != nil {
		t.Fatalf("write AB = (%d, %v)", n, err)
	}
	if n, err := c.Write(ctx, []byte("CD"), true); n != 2 || err != nil {
		t.Fatalf("write CD = (%d, %v)", n, err)
	}
	if _, err := c.Write(ctx, []byte("E"), false); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("write E on full channel err = %v, want ErrWouldBlock", err)
	}

	one := make([]byte, 1)
	if n, err := c.Read(ctx, one, true); n != 1 || err != nil || one[0] != 'A' {
		t.Fatalf("read 1 = (%d, %v, %q), want \"A\"", n, err, one[:n])
	}
	if n, err := c.Write(ctx, []byte("E"), false); n != 1 || err != nil {
		t.Fatalf("write E after read = (%d, %v)", n, err)
	}

	four := make([]byte, 4)
	if n, err := c.Read(ctx, four, true); n != 4 || err != nil || string(four) != "BCDE" {
		t.Fatalf("read 4 = (%d, %v, %q), want \"BCDE\"", n, err, four[:n])
	}
}

func TestStressReaderWriterPairs(t *testing.T) {
	// Many independent pairs; each writer pushes a payload much larger than
	// the buffer while its reader drains. Every byte must arrive in order.
	const pairs = 16
	const payload = 32 * 1024

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, pairs)

	for p := 0; p < pairs; p++ {
		c := mustNew(t, 64)
		data := make([]byte, payload)
		for i := range data {
			data[i] = byte((i + p) % 251)
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			if n, err := c.Write(ctx, data, true); err != nil || n != len(data) {
				errs <- fmt.Errorf("writer: (%d, %v)", n, err)
			}
		}()
		go func() {
			defer wg.Done()
			got := make([]byte, 0, payload)
			buf := make([]byte, 113)
			for len(got) < payload {
				n, err := c.Read(ctx, buf, true)
				if err != nil {
					errs <- fmt.Errorf("reader: %v", err)
					return
				}
				got = append(got, buf[:n]...)
			}
			if !bytes.Equal(got, data) {
				errs <- errors.New("reader: byte stream diverged from writer")
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("stress pairs deadlocked")
	}
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConcurrentWritersSerialized(t *testing.T) {
	// Writers whose chunks always fit in one commit are never split.
	const writers = 8
	const chunks = 64
	const chunkSize = 4

	c := mustNew(t, writers*chunkSize*chunks)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(id byte) {
			defer wg.Done()
			chunk := bytes.Repeat([]byte{'a' + id}, chunkSize)
			for i := 0; i < chunks; i++ {
				if _, err := c.Write(ctx, chunk, true); err != nil {
					t.Errorf("writer %d: %v", id, err)
					return
				}
			}
		}(byte(w))
	}
	wg.Wait()

	total := writers * chunks * chunkSize
	got := make([]byte, total)
	if n, err := c.Read(ctx, got, true); n != total || err != nil {
		t.Fatalf("Read = (%d, %v), want %d bytes", n, err, total)
	}
	// Each chunk committed while its writer held the lock, so the stream
	// decomposes into uniform runs of chunkSize.
	for i := 0; i < total; i += chunkSize {
		run := got[i : i+chunkSize]
		for _, b := range run {
			if b != run[0] {
				t.Fatalf("chunk at offset %d interleaved: %q", i, run)
			}
		}
	}
}
