package executoragent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fergusfinn/claude-host/internal/domain"
	"github.com/fergusfinn/claude-host/pkg/wsproto"
)

func TestDispatchOp_UnknownOpReturnsInvalidArgument(t *testing.T) {
	a := &Agent{}
	_, err := a.dispatchOp(context.Background(), &wsproto.Frame{Type: "not_a_real_op"})
	assert.True(t, errors.Is(err, domain.New(domain.ErrInvalidArgument, "")))
}

func TestDispatchOp_DecodeErrorPropagates(t *testing.T) {
	a := &Agent{}
	frame := &wsproto.Frame{Type: wsproto.OpDeleteSession, Data: []byte(`{"name": 5}`)}
	_, err := a.dispatchOp(context.Background(), frame)
	assert.Error(t, err)
}
