package enrichment

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStatusAndUnwrap(t *testing.T) {
	t.Parallel()

	root := errors.New("dial tcp: refused")
	err := fmt.Errorf("fetch page: %w", ServiceUnavailable("fetch", root))

	require.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
	require.True(t, IsServiceUnavailable(err))
	require.ErrorIs(t, err, root)
	require.Contains(t, err.Error(), "fetch: service unavailable: dial tcp: refused")
}

func TestStatusOfUntypedAndNil(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, StatusOf(nil))
	require.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
	require.Equal(t, http.StatusBadRequest, StatusOf(BadRequest("youtube", "missing video id")))
	require.Equal(t, http.StatusNotFound, StatusOf(NotFound("twitter", "no title")))
	require.False(t, IsServiceUnavailable(Internal("pipeline", errors.New("x"))))
}
