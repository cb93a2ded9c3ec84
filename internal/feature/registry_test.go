package feature

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/config"
	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
)

func testSession() *Session {
	return NewSession(&config.Config{CacheEnabled: false}, zap.NewNop())
}

func TestCallValidation(t *testing.T) {
	RegisterRaw("test.validate", "validate",
		func(ctx context.Context, s *Session, req Request) (*RawResult, error) {
			return &RawResult{Timestamp: req.Start, Duration: req.End - req.Start}, nil
		})
	RegisterSecondary("test.validate_secondary", "validate_secondary", nil,
		func(ctx context.Context, s *Session, req Request) (Record, error) {
			return Record{"value": 1}, nil
		})

	s := testSession()
	ctx := context.Background()

	cases := []struct {
		name string
		feat string
		req  Request
	}{
		{"missing id", "test.validate", Request{Start: 0, End: 100}},
		{"missing window", "test.validate", Request{ID: "U1"}},
		{"inverted range", "test.validate", Request{ID: "U1", Start: 200, End: 100}},
		{"missing resolution", "test.validate_secondary", Request{ID: "U1", Start: 0, End: 100}},
		{"unknown feature", "test.no_such_feature", Request{ID: "U1", Start: 0, End: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Call(ctx, s, tc.feat, tc.req)
			require.Error(t, err)
			require.True(t, cerrors.Is(err, cerrors.KindInvalidArgument))
		})
	}
}

func TestSecondaryGridShape(t *testing.T) {
	var calls []int64
	RegisterSecondary("test.grid", "grid", nil,
		func(ctx context.Context, s *Session, req Request) (Record, error) {
			calls = append(calls, req.Start)
			return Record{"value": req.Start}, nil
		})

	s := testSession()
	res, err := Call(context.Background(), s, "test.grid", Request{
		ID: "U1", Start: 1000, End: 4000, Resolution: 1000,
	})
	require.NoError(t, err)

	sec, ok := res.(*SecondaryResult)
	require.True(t, ok)
	require.Len(t, sec.Data, 3)

	// Windows are computed newest first but returned ascending.
	require.Equal(t, []int64{3000, 2000, 1000}, calls)
	for i, rec := range sec.Data {
		require.Equal(t, int64(1000+i*1000), rec.Timestamp())
	}
}

func TestSecondaryNilRecordBecomesNullValue(t *testing.T) {
	RegisterSecondary("test.nil", "nil", nil,
		func(ctx context.Context, s *Session, req Request) (Record, error) {
			return nil, nil
		})

	res, err := Call(context.Background(), testSession(), "test.nil", Request{
		ID: "U1", Start: 0, End: 1000, Resolution: 1000,
	})
	require.NoError(t, err)

	sec := res.(*SecondaryResult)
	require.Len(t, sec.Data, 1)
	require.Contains(t, sec.Data[0], "value")
	require.Nil(t, sec.Data[0]["value"])
}
