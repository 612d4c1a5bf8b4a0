package channel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatsConsistency(t *testing.T) {
	c := mustNew(t, 32)
	ctx := context.Background()

	c.Write(ctx, []byte("hello world"), true)
	st := c.Stats()
	if st.Capacity != 32 || st.Used != 11 || st.Free != 21 {
		t.Fatalf("Stats() = %+v", st)
	}
	if st.Used+st.Free != st.Capacity {
		t.Fatalf("used %d + free %d != capacity %d", st.Used, st.Free, st.Capacity)
	}
}

func TestSetCapacityRejectsShrinkBelowUsed(t *testing.T) {
	c := mustNew(t, 16)
	ctx := context.Background()
	c.Write(ctx, []byte("abcdefgh"), true)

	if err := c.SetCapacity(4); !errors.Is(err, ErrCapacityTooSmall) {
		t.Fatalf("SetCapacity(4) err = %v, want ErrCapacityTooSmall", err)
	}
	if err := c.SetCapacity(0); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("SetCapacity(0) err = %v, want ErrInvalidCapacity", err)
	}

	// Failed resizes leave capacity, used and content untouched.
	st := c.Stats()
	if st.Capacity != 16 || st.Used != 8 {
		t.Fatalf("channel changed by rejected resize: %+v", st)
	}
	buf := make([]byte, 8)
	if n, err := c.Read(ctx, buf, true); n != 8 || err != nil || string(buf) != "abcdefgh" {
		t.Fatalf("content after rejected resize = (%d, %v, %q)", n, err, buf[:n])
	}
}

func TestSetCapacityPreservesBufferedBytes(t *testing.T) {
	c := mustNew(t, 8)
	ctx := context.Background()

	// Wrap the content first so the resize has to unwrap it.
	c.Write(ctx, []byte("abcdefgh"), true)
	c.Read(ctx, make([]byte, 5), true)
	c.Write(ctx, []byte("123"), true) // buffered: fgh123, wrapped

	if err := c.SetCapacity(64); err != nil {
		t.Fatalf("SetCapacity(64): %v", err)
	}
	if got := c.Capacity(); got != 64 {
		t.Fatalf("Capacity() = %d, want 64", got)
	}

	buf := make([]byte, 6)
	if n, err := c.Read(ctx, buf, true); n != 6 || err != nil || string(buf) != "fgh123" {
		t.Fatalf("content after grow = (%d, %v, %q), want \"fgh123\"", n, err, buf[:n])
	}
}

func TestGrowWakesBlockedWriter(t *testing.T) {
	c := mustNew(t, 4)
	ctx := context.Background()
	c.Write(ctx, []byte("abcd"), true)

	done := make(chan error, 1)
	go func() {
		_, err := c.Write(ctx, []byte("efgh"), true)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := c.SetCapacity(16); err != nil {
		t.Fatalf("SetCapacity: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("writer after grow: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("grow did not wake the blocked writer")
	}

	buf := make([]byte, 8)
	if n, _ := c.Read(ctx, buf, true); string(buf[:n]) != "abcdefgh" {
		t.Fatalf("content after grow = %q, want \"abcdefgh\"", buf[:n])
	}
}

func TestControlDispatch(t *testing.T) {
	c := mustNew(t, 8)
	ctx := context.Background()
	c.Write(ctx, []byte("abc"), true)

	cases := []struct {
		cmd  Command
		arg  int
		want int
	}{
		{CmdGetCapacity, 0, 8},
		{CmdGetUsed, 0, 3},
		{CmdGetFree, 0, 5},
		{CmdSetCapacity, 16, 16},
		{CmdGetCapacity, 0, 16},
	}
	for _, tc := range cases {
		got, err := c.Control(tc.cmd, tc.arg)
		if err != nil || got != tc.want {
			t.Errorf("Control(%v, %d) = (%d, %v), want %d", tc.cmd, tc.arg, got, err, tc.want)
		}
	}

	if _, err := c.Control(Command(99), 0); !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("unknown command err = %v, want ErrInvalidCommand", err)
	}
	if _, err := c.Control(CmdSetCapacity, -1); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("Control(set_capacity, -1) err = %v, want ErrInvalidCapacity", err)
	}
}

func TestParseCommand(t *testing.T) {
	for _, name := range []string{"get_capacity", "set_capacity", "get_used", "get_free"} {
		cmd, err := ParseCommand(name)
		if err != nil {
			t.Errorf("ParseCommand(%q): %v", name, err)
		}
		if cmd.String() != name {
			t.Errorf("round trip %q -> %v -> %q", name, cmd, cmd.String())
		}
	}
	if _, err := ParseCommand("reset"); !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("ParseCommand(reset) err = %v, want ErrInvalidCommand", err)
	}
}
