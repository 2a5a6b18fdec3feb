package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ItemID    string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	Rate      int64     `validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	v := New()
	ctx := context.Background()

	assert.NoError(t, v.Validate(ctx, sample{ItemID: "x", StartDate: time.Now()}))
	assert.NoError(t, v.Validate(ctx, "not a struct"))
	assert.NoError(t, v.Validate(ctx, (*sample)(nil)))

	err := v.Validate(ctx, &sample{Rate: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{"item_id": "required", "start_date": "required", "rate": "gte"}, fields)
}
