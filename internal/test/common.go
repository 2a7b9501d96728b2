package tests

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/transport"
)

/*
  Attention!

  Networked transports need docker.

  The docker address is taken from the DOCKER_HOST environment variable.

*/

// Timeout bounds every wait for a sample to cross a transport.
var Timeout = 10 * time.Second

// RandomName returns a name usable as a topic or service token.
func RandomName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// TakeEventually polls r until it yields a loan.
func TakeEventually(t *testing.T, r transport.Reader, max int) *transport.Loan {
	var loan *transport.Loan
	require.Eventually(t, func() bool {
		l, err := r.Take(max)
		if err == transport.ErrNoData {
			return false
		}
		require.NoError(t, err)
		loan = l
		return true
	}, Timeout, time.Millisecond)
	return loan
}
