package materials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReceiveShipmentRejectsNonPositiveQuantity(t *testing.T) {
	// validation happens before any storage access
	r := &Repo{}

	_, err := r.ReceiveShipment(context.Background(), "lot-1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = r.ReceiveShipment(context.Background(), "lot-1", -5)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
