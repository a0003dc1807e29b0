package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusValid(t *testing.T) {
	for _, s := range []string{TicketOpen, TicketInProgress, TicketWaiting, TicketResolved} {
		assert.True(t, TicketStatusValid(s), s)
	}
	assert.False(t, TicketStatusValid("closed"))
	assert.False(t, TicketStatusValid(""))
}

func TestTicketCanTransition(t *testing.T) {
	allowed := [][2]string{
		{TicketOpen, TicketInProgress},
		{TicketInProgress, TicketWaiting},
		{TicketInProgress, TicketResolved},
		{TicketWaiting, TicketResolved},
		{TicketResolved, TicketOpen},
	}
	for _, edge := range allowed {
		assert.True(t, TicketCanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	// Everything outside the table is denied, including identity transitions.
	statuses := []string{TicketOpen, TicketInProgress, TicketWaiting, TicketResolved}
	allowedSet := map[[2]string]bool{}
	for _, e := range allowed {
		allowedSet[e] = true
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if allowedSet[[2]string{from, to}] {
				continue
			}
			assert.False(t, TicketCanTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.False(t, TicketCanTransition("bogus", TicketOpen))
	assert.False(t, TicketCanTransition(TicketOpen, "bogus"))
}
