package channel

// Command identifies one control-surface operation, mirroring the four
// introspection/resize commands of the external control interface.
type Command int

const (
	// CmdGetCapacity reads the current buffer capacity.
	CmdGetCapacity Command = iota
	// CmdSetCapacity resizes the buffer to the argument.
	CmdSetCapacity
	// CmdGetUsed reads the number of unread bytes.
	CmdGetUsed
	// CmdGetFree reads the number of writable bytes.
	CmdGetFree
)

// String returns the wire name of the command.
func (c Command) String() string {
	switch c {
	case CmdGetCapacity:
		return "get_capacity"
	case CmdSetCapacity:
		return "set_capacity"
	case CmdGetUsed:
		return "get_used"
	case CmdGetFree:
		return "get_free"
	}
	return "unknown"
}

// ParseCommand maps a wire name to a Command.
func ParseCommand(name string) (Command, error) {
	switch name {
	case "get_capacity":
		return CmdGetCapacity, nil
	case "set_capacity":
		return CmdSetCapacity, nil
	case "get_used":
		return CmdGetUsed, nil
	case "get_free":
		return CmdGetFree, nil
	}
	return 0, ErrInvalidCommand
}

// Capacity returns the current buffer capacity in bytes.
func (c *Channel) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.Capacity()
}

// Used returns the number of unread bytes.
func (c *Channel) Used() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.Used()
}

// Free returns the number of bytes writable before the channel is full.
func (c *Channel) Free() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.Free()
}

// Stats returns capacity, used and free as one consistent snapshot.
func (c *Channel) Stats() Stat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stat{
		Capacity: c.ring.Capacity(),
		Used:     c.ring.Used(),
		Free:     c.ring.Free(),
	}
}

// SetCapacity resizes the buffer, preserving the unread bytes. It returns
// ErrInvalidCapacity for capacities below one and ErrCapacityTooSmall when
// the unread bytes would not fit; the channel is untouched on error.
//
// On success both wait queues are woken: a grow may unblock writers, and
// after a shrink every waiter has to re-validate its predicate against the
// new capacity.
func (c *Channel) SetCapacity(capacity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ring.Resize(capacity); err != nil {
		return err
	}
	c.wakeReaders()
	c.wakeWriters()
	return nil
}

// Control dispatches one control command. Get commands ignore arg and return
// the value; CmdSetCapacity resizes to arg and returns the new capacity.
// None of the commands ever waits for data or space.
func (c *Channel) Control(cmd Command, arg int) (int, error) {
	switch cmd {
	case CmdGetCapacity:
		return c.Capacity(), nil
	case CmdSetCapacity:
		if err := c.SetCapacity(arg); err != nil {
			return 0, err
		}
		return arg, nil
	case CmdGetUsed:
		return c.Used(), nil
	case CmdGetFree:
		return c.Free(), nil
	}
	return 0, ErrInvalidCommand
}
