//go:build linux

package spi

import (
	"golang.org/x/sys/unix"
)

// SCHED_FIFO from <sched.h>.
const schedFIFO = 1

type schedState struct {
	prev *unix.SchedAttr
}

// raise moves the calling thread to SCHED_FIFO at prio.
func raise(prio int) (schedState, error) {
	attr, err := unix.SchedGetAttr(0, 0)
	if err != nil {
		return schedState{}, err
	}
	prev := *attr
	next := prev
	next.Policy = schedFIFO
	next.Priority = uint32(prio)
	next.Nice = 0
	if err := unix.SchedSetAttr(0, &next, 0); err != nil {
		return schedState{}, err
	}
	return schedState{prev: &prev}, nil
}

func lower(s schedState) error {
	if s.prev == nil {
		return nil
	}
	return unix.SchedSetAttr(0, s.prev, 0)
}
