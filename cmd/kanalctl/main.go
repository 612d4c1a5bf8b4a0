// Command kanalctl is a small CLI for poking a kanal service: open and
// close handles, move bytes, resize buffers and inspect fill levels.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/kanalhq/kanal/pkg/client"
)

const usage = `usage: kanalctl [-addr URL] [-timeout DUR] <command> [args]

commands:
  stat                          list channels with fill levels
  open <channel> <mode>         open a handle (mode: read|write|readwrite)
  close <handle>                release a handle
  write <handle> [data]         write data (stdin when omitted); -nonblock
  read <handle> <maxlen>        read up to maxlen bytes; -nonblock
  capacity <channel>            print buffer capacity
  resize <channel> <bytes>      set buffer capacity
  used <channel>                print unread byte count
  free <channel>                print free byte count
  policy <channel> [limit]      get or set the opener limit
`

func main() {
	addr := flag.String("addr", "http://localhost:8410", "Service address")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout (0 = wait forever)")
	nonblock := flag.Bool("nonblock", false, "Non-blocking read/write")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*addr, client.WithTimeout(*timeout))
	ctx := context.Background()

	if err := run(ctx, c, args, *nonblock); err != nil {
		fmt.Fprintf(os.Stderr, "kanalctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, args []string, nonblock bool) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "stat":
		stats, err := c.Channels(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%-4s %-10s %-8s %-8s %-8s %-8s %s\n",
			"ID", "CAPACITY", "USED", "FREE", "READERS", "WRITERS", "LIMIT")
		for _, st := range stats {
			limit := strconv.Itoa(st.MaxOpeners)
			if st.MaxOpeners == 0 {
				limit = "-"
			}
			fmt.Printf("%-4d %-10d %-8d %-8d %-8d %-8d %s\n",
				st.ID, st.Capacity, st.Used, st.Free, st.Readers, st.Writers, limit)
		}
		return nil

	case "open":
		id, mode, err := channelAndArg(rest)
		if err != nil {
			return err
		}
		handle, err := c.Open(ctx, id, mode)
		if err != nil {
			return err
		}
		fmt.Println(handle)
		return nil

	case "close":
		if len(rest) != 1 {
			return fmt.Errorf("close takes exactly one handle")
		}
		return c.Close(ctx, rest[0])

	case "write":
		if len(rest) < 1 {
			return fmt.Errorf("write takes a handle and optional data")
		}
		var data []byte
		if len(rest) >= 2 {
			data = []byte(rest[1])
		} else {
			var err error
			data, err = io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
		}
		n, err := c.Write(ctx, rest[0], data, nonblock)
		if n > 0 {
			fmt.Printf("wrote %d bytes\n", n)
		}
		return err

	case "read":
		if len(rest) != 2 {
			return fmt.Errorf("read takes a handle and a byte count")
		}
		maxLen, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("byte count must be an integer: %q", rest[1])
		}
		data, err := c.Read(ctx, rest[0], maxLen, nonblock)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil

	case "capacity":
		return printInt(rest, func(id int) (int, error) { return c.Capacity(ctx, id) })

	case "used":
		return printInt(rest, func(id int) (int, error) { return c.Used(ctx, id) })

	case "free":
		return printInt(rest, func(id int) (int, error) { return c.Free(ctx, id) })

	case "resize":
		id, arg, err := channelAndArg(rest)
		if err != nil {
			return err
		}
		capacity, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("capacity must be an integer: %q", arg)
		}
		return c.SetCapacity(ctx, id, capacity)

	case "policy":
		if len(rest) == 1 {
			return printInt(rest, func(id int) (int, error) { return c.MaxOpeners(ctx, id) })
		}
		id, arg, err := channelAndArg(rest)
		if err != nil {
			return err
		}
		limit, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("limit must be an integer: %q", arg)
		}
		return c.SetMaxOpeners(ctx, id, limit)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func channelAndArg(rest []string) (int, string, error) {
	if len(rest) != 2 {
		return 0, "", fmt.Errorf("expected a channel id and one argument")
	}
	id, err := strconv.Atoi(rest[0])
	if err != nil {
		return 0, "", fmt.Errorf("channel id must be an integer: %q", rest[0])
	}
	return id, rest[1], nil
}

func printInt(rest []string, get func(int) (int, error)) error {
	if len(rest) != 1 {
		return fmt.Errorf("expected exactly one channel id")
	}
	id, err := strconv.Atoi(rest[0])
	if err != nil {
		return fmt.Errorf("channel id must be an integer: %q", rest[0])
	}
	v, err := get(id)
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}
