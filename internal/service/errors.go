package service

import "errors"

var (
	ErrVotingDisabled  = errors.New("voting is currently disabled")
	ErrInvalidArgument = errors.New("invalid argument")
)
