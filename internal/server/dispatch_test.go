package server

import (
	"errors"
	"fmt"
	"testing"

	"github.com/corvus-proxy/corvus/internal/classify"
	"github.com/corvus-proxy/corvus/internal/clusterslot"
	"github.com/stretchr/testify/assert"
)

func TestRoutingKeyEnumerableFamilyUsesFirstArg(t *testing.T) {
	entry := classify.Entry{KeyFirst: 1, KeyStep: 1}
	args := [][]byte{[]byte("k1"), []byte("k2")}
	assert.Equal(t, "k1", string(routingKey(args, entry)))
}

func TestRoutingKeyEvalUsesDeclaredOffset(t *testing.T) {
	entry := classify.Entry{KeyFirst: 3, KeyStep: 0}
	args := [][]byte{[]byte("return 1"), []byte("1"), []byte("mykey")}
	assert.Equal(t, "mykey", string(routingKey(args, entry)))
}

func TestRoutingKeyEvalOutOfRangeReturnsNil(t *testing.T) {
	entry := classify.Entry{KeyFirst: 3, KeyStep: 0}
	args := [][]byte{[]byte("return 1")}
	assert.Nil(t, routingKey(args, entry))
}

func TestForwardErrorMessageRedirect(t *testing.T) {
	assert.Equal(t, "ERR Proxy redirecting error", forwardErrorMessage(ErrRedirect))
}

func TestForwardErrorMessageNoRoute(t *testing.T) {
	assert.Equal(t, "ERR Proxy fail to get server", forwardErrorMessage(clusterslot.ErrNoRoute))
}

func TestForwardErrorMessageBackendFailureIsGeneric(t *testing.T) {
	wrapped := fmt.Errorf("%w: %v", ErrBackendUnavailable, errors.New("dial refused"))
	assert.Equal(t, "ERR Proxy error", forwardErrorMessage(wrapped))
}
