package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront-edge/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-edge/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL+"/api/", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.ErrorIs(t, err, errBaseURLRequired)
}

func TestFetchCartDecodesWrappedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "req-9", r.Header.Get("X-Request-Id"))
		_, _ = io.WriteString(w, `{"cart":[
			{"product":{"_id":"A","name":"Lamp","image":"a.png","price":100,"discount":10},"quantity":2,"variation":null},
			{"product":{"id":"B","name":"Mug","price":"4.50","discount":0},"quantity":1,"variation":"Red"}
		]}`)
	})

	ctx := WithRequestID(context.Background(), "req-9")
	lines, err := client.Cart(TokenFunc(func() string { return "tok-1" })).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "A", lines[0].Product.ID)
	assert.Nil(t, lines[0].Variation)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].Product.Discount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "B", lines[1].Product.ID)
	assert.Equal(t, "Red", *lines[1].Variation)
	assert.True(t, lines[1].Product.Price.Equal(decimal.RequireFromString("4.5")))
}

func TestFetchCartDecodesBareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"), "a request id is generated when none is carried")
		_, _ = io.WriteString(w, `[{"product":{"id":"A","price":1},"quantity":3}]`)
	})

	lines, err := client.Cart(nil).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestReplaceCartSendsIDsOnly(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	lines := cart.Add(nil, cart.Product{ID: "A", Name: "Lamp", Price: decimal.NewFromInt(5)}, 2, nil)
	lines = cart.Add(lines, cart.Product{ID: "B"}, 1, cart.Variation("Red"))

	err := client.Cart(TokenFunc(func() string { return "tok" })).Replace(context.Background(), lines)
	require.NoError(t, err)

	items := got["cart"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "A", first["product"])
	assert.EqualValues(t, 2, first["quantity"])
	assert.Nil(t, first["variation"])
	second := items[1].(map[string]any)
	assert.Equal(t, "Red", second["variation"])
}

func TestReplaceEmptyCartSendsEmptyArray(t *testing.T) {
	var raw []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
	})

	require.NoError(t, client.Cart(nil).Replace(context.Background(), nil))
	assert.JSONEq(t, `{"cart":[]}`, string(raw))
}

func TestStatusErrorsAreTyped(t *testing.T) {
	cases := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusUnprocessableEntity, pkgerrors.CodeValidation},
		{http.StatusBadGateway, pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		})
		_, err := client.Cart(nil).Fetch(context.Background())
		require.Error(t, err)
		assert.Equal(t, tc.code, pkgerrors.CodeOf(err), "status %d", tc.status)
	}
}

func TestTransportFailureIsDependencyError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client, err := NewClient(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = client.Cart(nil).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestMalformedBodyIsDependencyError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"cart":`)
	})
	_, err := client.Cart(nil).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}
