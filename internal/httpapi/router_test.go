package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"grocer-be/internal/address"
	"grocer-be/internal/cart"
	"grocer-be/internal/category"
	"grocer-be/internal/coupon"
	"grocer-be/internal/identity"
	"grocer-be/internal/kvstore"
	"grocer-be/internal/product"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testToken = "good-token"
	testUser  = "8f0e2b1c-6c1a-4d55-9a55-2f6b7a3e9c11"
)

// --- mocks ---

type MockIdentity struct{ mock.Mock }

func (m *MockIdentity) SignUp(ctx context.Context, in identity.SignUpInput) (*identity.User, error) {
	args := m.Called(ctx, in)
	if u := args.Get(0); u != nil {
		return u.(*identity.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentity) SignIn(ctx context.Context, email, password string) (*identity.SignInResult, error) {
	args := m.Called(ctx, email, password)
	if res := args.Get(0); res != nil {
		return res.(*identity.SignInResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentity) SignOut(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockIdentity) ValidateSession(ctx context.Context, token string) (*identity.Claims, error) {
	args := m.Called(ctx, token)
	if c := args.Get(0); c != nil {
		return c.(*identity.Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockProducts struct{ mock.Mock }

func (m *MockProducts) Get(ctx context.Context, id string) (*product.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*product.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProducts) List(ctx context.Context, opts product.ListOptions) ([]*product.Product, error) {
	args := m.Called(ctx, opts)
	if p := args.Get(0); p != nil {
		return p.([]*product.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCategories struct{ mock.Mock }

func (m *MockCategories) List(ctx context.Context, filter string) ([]*category.Category, error) {
	args := m.Called(ctx, filter)
	if c := args.Get(0); c != nil {
		return c.([]*category.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCart struct{ mock.Mock }

func (m *MockCart) ListCart(ctx context.Context, ownerID string) ([]*cart.LineView, error) {
	args := m.Called(ctx, ownerID)
	if l := args.Get(0); l != nil {
		return l.([]*cart.LineView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCart) AddItem(ctx context.Context, ownerID, productID string, quantity int) (*cart.LineView, error) {
	args := m.Called(ctx, ownerID, productID, quantity)
	if l := args.Get(0); l != nil {
		return l.(*cart.LineView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCart) UpdateQuantity(ctx context.Context, lineID, ownerID string, quantity int) (bool, error) {
	args := m.Called(ctx, lineID, ownerID, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockCart) RemoveItem(ctx context.Context, lineID, ownerID string) (bool, error) {
	args := m.Called(ctx, lineID, ownerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCart) ClearCart(ctx context.Context, ownerID string) (bool, error) {
	args := m.Called(ctx, ownerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCart) ApplyCoupon(ctx context.Context, ownerID, code string) (*coupon.Coupon, error) {
	args := m.Called(ctx, ownerID, code)
	if c := args.Get(0); c != nil {
		return c.(*coupon.Coupon), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCart) RemoveCoupon(ownerID string) { m.Called(ownerID) }

func (m *MockCart) AppliedCoupon(ownerID string) *coupon.Coupon {
	if c := m.Called(ownerID).Get(0); c != nil {
		return c.(*coupon.Coupon)
	}
	return nil
}

func (m *MockCart) Totals(ctx context.Context, ownerID string) (cart.Totals, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(cart.Totals), args.Error(1)
}

func (m *MockCart) Watch(ctx context.Context, ownerID string, onChange func([]*cart.LineView)) error {
	args := m.Called(ctx, ownerID, onChange)
	if fn, ok := args.Get(1).(func(func([]*cart.LineView))); ok {
		fn(onChange)
	}
	return args.Error(0)
}

func (m *MockCart) Ready(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockAddresses struct{ mock.Mock }

func (m *MockAddresses) List(ctx context.Context) ([]*address.Address, error) {
	args := m.Called(ctx)
	if a := args.Get(0); a != nil {
		return a.([]*address.Address), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAddresses) Get(ctx context.Context, id string) (*address.Address, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*address.Address), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAddresses) Create(ctx context.Context, in address.AddressInput) (*address.Address, error) {
	args := m.Called(ctx, in)
	if a := args.Get(0); a != nil {
		return a.(*address.Address), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAddresses) Update(ctx context.Context, id string, in address.AddressInput) (*address.Address, error) {
	args := m.Called(ctx, id, in)
	if a := args.Get(0); a != nil {
		return a.(*address.Address), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAddresses) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAddresses) SetDefaultAddress(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- helpers ---

type fixture struct {
	ident *MockIdentity
	prods *MockProducts
	cats  *MockCategories
	cart  *MockCart
	addrs *MockAddresses
	redis *miniredis.Miniredis
	h     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		ident: new(MockIdentity),
		prods: new(MockProducts),
		cats:  new(MockCategories),
		cart:  new(MockCart),
		addrs: new(MockAddresses),
		redis: mr,
	}
	f.ident.On("ValidateSession", mock.Anything, testToken).
		Return(&identity.Claims{UserID: testUser, Email: "a@b.co"}, nil).Maybe()

	f.h = NewRouter(Deps{
		Identity:       f.ident,
		Products:       f.prods,
		Categories:     f.cats,
		Cart:           f.cart,
		Addresses:      f.addrs,
		Preferences:    kvstore.NewRedisStore(client, "grocer:"),
		RequestTimeout: time.Second,
	})
	return f
}

func (f *fixture) do(method, path, body string, authed bool, headers ...string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if authed {
		r.Header.Set("Authorization", "Bearer "+testToken)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- health ---

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.cart.On("Ready", mock.Anything).Return(nil).Once()

	w := f.do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	f.cart.On("Ready", mock.Anything).Return(cart.ErrDataUnavailable).Once()
	w = f.do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// --- auth ---

func TestSignIn_SetsCookie(t *testing.T) {
	f := newFixture(t)
	user := &identity.User{Email: "a@b.co", PasswordHash: "secret-hash"}
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	f.ident.On("SignIn", mock.Anything, "a@b.co", "pw123456").
		Return(&identity.SignInResult{Token: "tok", User: user, ExpiresAt: expires}, nil)

	w := f.do(http.MethodPost, "/auth/signin", `{"email":"a@b.co","password":"pw123456"}`, false)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-hash")
	assert.Contains(t, w.Body.String(), `"token":"tok"`)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.ident.On("SignIn", mock.Anything, "a@b.co", "nope").Return(nil, identity.ErrInvalidCredentials)

	w := f.do(http.MethodPost, "/auth/signin", `{"email":"a@b.co","password":"nope"}`, false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decodeError(t, w).Code)
}

func TestSignUp(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"created", nil, http.StatusCreated},
		{"duplicate email", identity.ErrEmailExists, http.StatusConflict},
		{"short password", identity.ErrPasswordTooShort, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var user *identity.User
			if tt.err == nil {
				user = &identity.User{Email: "new@b.co"}
			}
			f.ident.On("SignUp", mock.Anything, identity.SignUpInput{Email: "new@b.co", Password: "pw"}).
				Return(user, tt.err)

			w := f.do(http.MethodPost, "/auth/signup", `{"email":"new@b.co","password":"pw"}`, false)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestSignOut_RevokesAndClearsCookie(t *testing.T) {
	f := newFixture(t)
	f.ident.On("SignOut", mock.Anything, testToken).Return(nil)

	w := f.do(http.MethodPost, "/auth/signout", "", true)

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)
	f.ident.AssertExpectations(t)
}

func TestInvalidTokenRejected(t *testing.T) {
	f := newFixture(t)
	f.ident.On("ValidateSession", mock.Anything, "stale").Return(nil, identity.ErrSessionExpired)

	w := f.do(http.MethodGet, "/products", "", false, "Authorization", "Bearer stale")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- products ---

func TestListProducts_ParsesQuery(t *testing.T) {
	f := newFixture(t)
	want := product.ListOptions{Category: "fruit", Search: "app", Limit: 10, Page: 2}
	f.prods.On("List", mock.Anything, want).Return([]*product.Product{{ID: "p1", Name: "Apple"}}, nil)

	w := f.do(http.MethodGet, "/products?category=fruit&search=app&limit=10&page=2", "", false)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Apple")
}

func TestListProducts_BadLimit(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/products?limit=abc", "", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.prods.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)
	f.prods.On("Get", mock.Anything, "missing").Return(nil, product.ErrProductNotFound)

	w := f.do(http.MethodGet, "/products/missing", "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCategories(t *testing.T) {
	f := newFixture(t)
	f.cats.On("List", mock.Anything, "veg").
		Return([]*category.Category{{Name: "vegetables", ProductCount: 3, InStockCount: 2}}, nil)

	w := f.do(http.MethodGet, "/categories?search=veg", "", false)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"vegetables","product_count":3,"in_stock_count":2}]`, w.Body.String())
}

// --- cart ---

func TestCart_RequiresUser(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/cart", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	f.cart.AssertNotCalled(t, "ListCart", mock.Anything, mock.Anything)
}

func TestGetCart_WithTotalsAndCoupon(t *testing.T) {
	f := newFixture(t)
	lines := []*cart.LineView{
		{Line: cart.Line{ID: "l1", Quantity: 2}, Product: &product.Product{Price: 250}},
	}
	applied := &coupon.Coupon{Code: "TEN", Kind: coupon.KindPercentage, DiscountValue: "10"}
	f.cart.On("ListCart", mock.Anything, testUser).Return(lines, nil)
	f.cart.On("AppliedCoupon", testUser).Return(applied)

	w := f.do(http.MethodGet, "/cart", "", true)

	require.Equal(t, http.StatusOK, w.Code)
	var resp cartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Lines, 1)
	assert.Equal(t, 500.0, resp.Totals.Subtotal)
	assert.Equal(t, 2, resp.Totals.ItemCount)
	assert.Equal(t, 50.0, resp.Totals.DiscountAmount)
	assert.Equal(t, 450.0, resp.Totals.DiscountedSubtotal)
	assert.Equal(t, "TEN", resp.Coupon.Code)
}

func TestGetCart_Unavailable(t *testing.T) {
	f := newFixture(t)
	f.cart.On("ListCart", mock.Anything, testUser).Return(nil, cart.ErrDataUnavailable)

	w := f.do(http.MethodGet, "/cart", "", true)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "cart_unavailable", decodeError(t, w).Code)
}

func TestAddItem(t *testing.T) {
	f := newFixture(t)
	line := &cart.LineView{Line: cart.Line{ID: "l1", ProductID: "p1", Quantity: 3}}
	f.cart.On("AddItem", mock.Anything, testUser, "p1", 3).Return(line, nil)

	w := f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":3}`, true)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"quantity":3`)
}

func TestAddItem_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unknown product", product.ErrProductNotFound, http.StatusNotFound},
		{"negative quantity", cart.ErrInvalidQuantity, http.StatusBadRequest},
		{"storage", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cart.On("AddItem", mock.Anything, testUser, "p1", 1).Return(nil, tt.err)

			w := f.do(http.MethodPost, "/cart", `{"product_id":"p1","quantity":1}`, true)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestAddItem_BadJSON(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/cart", `{`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	f.cart.On("UpdateQuantity", mock.Anything, "l1", testUser, 0).Return(false, nil)

	w := f.do(http.MethodPatch, "/cart/items/l1", `{"quantity":0}`, true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":false}`, w.Body.String())
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)
	f.cart.On("RemoveItem", mock.Anything, "l1", testUser).Return(true, nil)

	w := f.do(http.MethodDelete, "/cart/items/l1", "", true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":true}`, w.Body.String())
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	f.cart.On("ClearCart", mock.Anything, testUser).Return(true, nil)

	w := f.do(http.MethodDelete, "/cart", "", true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cleared":true}`, w.Body.String())
}

func TestApplyCoupon(t *testing.T) {
	f := newFixture(t)
	applied := &coupon.Coupon{Code: "FLAT", Kind: coupon.KindFixedAmount, DiscountValue: "100"}
	totals := cart.Totals{Subtotal: 1000, ItemCount: 1, DiscountAmount: 100, DiscountedSubtotal: 900}
	f.cart.On("ApplyCoupon", mock.Anything, testUser, "FLAT").Return(applied, nil)
	f.cart.On("Totals", mock.Anything, testUser).Return(totals, nil)

	w := f.do(http.MethodPost, "/cart/coupon", `{"code":"FLAT"}`, true)

	require.Equal(t, http.StatusOK, w.Code)
	var resp applyCouponResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FLAT", resp.Coupon.Code)
	assert.Equal(t, 900.0, resp.Totals.DiscountedSubtotal)
}

func TestApplyCoupon_Rejections(t *testing.T) {
	t.Run("invalid coupon", func(t *testing.T) {
		f := newFixture(t)
		f.cart.On("ApplyCoupon", mock.Anything, testUser, "OLD").
			Return(nil, &cart.InvalidCouponError{Reason: "Coupon expired"})

		w := f.do(http.MethodPost, "/cart/coupon", `{"code":"OLD"}`, true)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "invalid_coupon", resp.Code)
		assert.Equal(t, "Coupon expired", resp.Error)
	})

	t.Run("minimum purchase", func(t *testing.T) {
		f := newFixture(t)
		f.cart.On("ApplyCoupon", mock.Anything, testUser, "BIG").
			Return(nil, &cart.MinimumPurchaseNotMetError{Required: 800, Actual: 500})

		w := f.do(http.MethodPost, "/cart/coupon", `{"code":"BIG"}`, true)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "minimum_purchase_not_met", resp.Code)
		assert.Equal(t, map[string]any{"required": 800.0, "actual": 500.0}, resp.Details)
	})

	t.Run("empty code", func(t *testing.T) {
		f := newFixture(t)
		f.cart.On("ApplyCoupon", mock.Anything, testUser, "").Return(nil, cart.ErrCouponCodeRequired)

		w := f.do(http.MethodPost, "/cart/coupon", `{"code":""}`, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRemoveCoupon(t *testing.T) {
	f := newFixture(t)
	f.cart.On("RemoveCoupon", testUser).Return()

	w := f.do(http.MethodDelete, "/cart/coupon", "", true)

	assert.Equal(t, http.StatusNoContent, w.Code)
	f.cart.AssertExpectations(t)
}

// --- cart events ---

func TestCartEvents_StreamsRefreshes(t *testing.T) {
	f := newFixture(t)
	first := []*cart.LineView{{Line: cart.Line{ID: "l1", Quantity: 1}, Product: &product.Product{Price: 10}}}
	second := []*cart.LineView{{Line: cart.Line{ID: "l1", Quantity: 4}, Product: &product.Product{Price: 10}}}

	f.cart.On("AppliedCoupon", testUser).Return(nil)
	f.cart.On("Watch", mock.Anything, testUser, mock.Anything).
		Return(nil, func(onChange func([]*cart.LineView)) {
			onChange(first)
			onChange(second)
		})

	w := f.do(http.MethodGet, "/cart/events", "", true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event: cart\n"))
	assert.Contains(t, body, `"subtotal":40`)
}

func TestCartEvents_NoFeed(t *testing.T) {
	f := newFixture(t)
	f.cart.On("Watch", mock.Anything, testUser, mock.Anything).Return(cart.ErrNoChangeFeed, nil)

	w := f.do(http.MethodGet, "/cart/events", "", true)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "events_unavailable", decodeError(t, w).Code)
}

func TestCartEvents_RequiresUser(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/cart/events", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- addresses ---

func TestAddresses(t *testing.T) {
	f := newFixture(t)
	in := address.AddressInput{
		Name: "Home", ReceiverName: "Ana", Phone: "0812", AddressLine1: "Jl. Mawar 1",
		City: "Bandung", PostalCode: "40111", Country: "ID",
	}
	f.addrs.On("List", mock.Anything).Return([]*address.Address{{Name: "Home"}}, nil)
	f.addrs.On("Create", mock.Anything, in).Return(&address.Address{Name: "Home"}, nil)
	f.addrs.On("Update", mock.Anything, "a1", in).Return(nil, address.ErrAddressNotFound)
	f.addrs.On("Delete", mock.Anything, "a1").Return(nil)
	f.addrs.On("SetDefaultAddress", mock.Anything, "bad").Return(address.ErrInvalidAddressID)

	body := `{"name":"Home","receiver_name":"Ana","phone":"0812","address_line1":"Jl. Mawar 1",` +
		`"city":"Bandung","postal_code":"40111","country":"ID"}`

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/addresses", "", true).Code)
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/addresses", body, true).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/addresses/a1", body, true).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/addresses/a1", "", true).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/addresses/bad/default", "", true).Code)
}

func TestCreateAddress_MissingField(t *testing.T) {
	f := newFixture(t)
	f.addrs.On("Create", mock.Anything, mock.Anything).Return(nil, &address.MissingFieldError{Field: "city"})

	w := f.do(http.MethodPost, "/addresses", `{"name":"Home"}`, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "missing_field", resp.Code)
	assert.Equal(t, map[string]any{"field": "city"}, resp.Details)
}

// --- permissions ---

func TestPermissions_RequireDeviceID(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/permissions/evaluate", `{"statuses":{}}`, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPermissions_UnknownKind(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/permissions/evaluate", `{"statuses":{"microphone":"granted"}}`, false,
		DeviceIDHeader, "dev-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPermissions_FirstVisitShowsScreen(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/permissions/evaluate",
		`{"statuses":{"camera":"granted","media_library":"denied"}}`, false, DeviceIDHeader, "dev-1")

	require.Equal(t, http.StatusOK, w.Code)
	var resp permissionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.ShowScreen)
	assert.True(t, *resp.ShowScreen)
	assert.True(t, resp.OfferSettingsRedirect)
	require.Len(t, resp.Prompts, 1)
	assert.Equal(t, "Photos Permission Required", resp.Prompts[0].Title)
	assert.Equal(t, "undetermined", string(resp.State.Notifications))
}

func TestPermissions_SeenThenCooldown(t *testing.T) {
	f := newFixture(t)
	const prefix = "grocer:permissions:dev-2:"

	w := f.do(http.MethodPost, "/permissions/seen", "", false, DeviceIDHeader, "dev-2")
	require.Equal(t, http.StatusNoContent, w.Code)

	seen, err := f.redis.Get(prefix + "has_seen_permission_screen")
	require.NoError(t, err)
	assert.Equal(t, "true", seen)
	assert.True(t, f.redis.Exists(prefix+"last_permission_check_time"))

	evaluate := func(device string) permissionsResponse {
		w := f.do(http.MethodPost, "/permissions/evaluate", `{"statuses":{"camera":"denied"}}`, false,
			DeviceIDHeader, device)
		require.Equal(t, http.StatusOK, w.Code)
		var resp permissionsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.ShowScreen)
		return resp
	}

	// within the cooldown the screen stays hidden
	assert.False(t, *evaluate("dev-2").ShowScreen)

	// another device has its own policy
	assert.True(t, *evaluate("dev-3").ShowScreen)

	// four days later it shows again and the check time moves forward
	old := time.Now().Add(-96 * time.Hour).UnixMilli()
	require.NoError(t, f.redis.Set(prefix+"last_permission_check_time", strconv.FormatInt(old, 10)))

	assert.True(t, *evaluate("dev-2").ShowScreen)

	raw, err := f.redis.Get(prefix + "last_permission_check_time")
	require.NoError(t, err)
	recorded, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	assert.Greater(t, recorded, old)
}

func TestPermissions_RequestAll(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/permissions/request",
		`{"statuses":{"camera":"granted","media_library":"granted","notifications":"granted"}}`, false,
		DeviceIDHeader, "dev-4")

	require.Equal(t, http.StatusOK, w.Code)
	var resp permissionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.State.AllGranted)
	assert.False(t, resp.OfferSettingsRedirect)
	assert.Empty(t, resp.Prompts)
	assert.Nil(t, resp.ShowScreen)
}
