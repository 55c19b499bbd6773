package flow

import "errors"

var (
	ErrDuplicateID     = errors.New("flow: duplicate node id")
	ErrNodeNotFound    = errors.New("flow: node not found")
	ErrPortOccupied    = errors.New("flow: target already has a parent")
	ErrNoSuchPort      = errors.New("flow: no such port")
	ErrWrongNodeType   = errors.New("flow: wrong node type")
	ErrRowOutOfRange   = errors.New("flow: row index out of range")
	ErrInvalidSchedule = errors.New("flow: invalid schedule")
)
