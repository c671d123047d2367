//go:build !linux

package spi

import "errors"

type schedState struct{}

func raise(int) (schedState, error) {
	return schedState{}, errors.New("spi: real-time scheduling is only supported on linux")
}

func lower(schedState) error {
	return nil
}
