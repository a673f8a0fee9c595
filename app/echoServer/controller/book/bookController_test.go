package book

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"librarycatalog/model"
	bookrepo "librarycatalog/repository/book"
	booksvc "librarycatalog/service/book"
)

type svcMock struct {
	getFn       func(ctx context.Context, serial string) (*model.Book, error)
	listFn      func(ctx context.Context, f booksvc.ListFilter) ([]model.Book, error)
	addFn       func(ctx context.Context, serial, title, author string) (*model.Book, error)
	deleteFn    func(ctx context.Context, serial string, allowIfBorrowed bool) error
	borrowFn    func(ctx context.Context, serial, card string) (*model.Book, error)
	returnFn    func(ctx context.Context, serial string) (*model.Book, error)
	setStatusFn func(ctx context.Context, serial string, borrowed bool, card *string, when *time.Time) (*model.Book, error)
}

var _ booksvc.Service = (*svcMock)(nil)

func (m *svcMock) GetBySerial(ctx context.Context, serial string) (*model.Book, error) {
	return m.getFn(ctx, serial)
}
func (m *svcMock) List(ctx context.Context, f booksvc.ListFilter) ([]model.Book, error) {
	return m.listFn(ctx, f)
}
func (m *svcMock) Add(ctx context.Context, serial, title, author string) (*model.Book, error) {
	return m.addFn(ctx, serial, title, author)
}
func (m *svcMock) Delete(ctx context.Context, serial string, allowIfBorrowed bool) error {
	return m.deleteFn(ctx, serial, allowIfBorrowed)
}
func (m *svcMock) Borrow(ctx context.Context, serial, card string) (*model.Book, error) {
	return m.borrowFn(ctx, serial, card)
}
func (m *svcMock) Return(ctx context.Context, serial string) (*model.Book, error) {
	return m.returnFn(ctx, serial)
}
func (m *svcMock) SetStatus(ctx context.Context, serial string, borrowed bool, card *string, when *time.Time) (*model.Book, error) {
	return m.setStatusFn(ctx, serial, borrowed, card, when)
}

func newController(svc booksvc.Service) *Controller {
	return &Controller{Svc: svc, V: validator.New(), Log: slog.Default()}
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, h(c))
	return rec
}

func sampleBook(serial string) *model.Book {
	return &model.Book{SerialNumber: serial, Title: "Clean Code", Author: "Robert C. Martin"}
}

func TestCreate_Created(t *testing.T) {
	m := &svcMock{
		addFn: func(ctx context.Context, serial, title, author string) (*model.Book, error) {
			require.Equal(t, "123456", serial)
			return sampleBook(serial), nil
		},
	}
	rec := doJSON(t, newController(m).Create, http.MethodPost, "/v1/books",
		`{"serial_number":"123456","title":"Clean Code","author":"Robert C. Martin"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"serial_number":"123456"`)
	require.Contains(t, rec.Body.String(), `"is_borrowed":false`)
}

func TestCreate_ShapeRejected(t *testing.T) {
	m := &svcMock{
		addFn: func(ctx context.Context, serial, title, author string) (*model.Book, error) {
			t.Fatal("service must not run on a malformed request")
			return nil, nil
		},
	}
	h := newController(m)

	rec := doJSON(t, h.Create, http.MethodPost, "/v1/books", `not json`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h.Create, http.MethodPost, "/v1/books",
		`{"serial_number":"12345","title":"T","author":"A"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate_DuplicateConflict(t *testing.T) {
	m := &svcMock{
		addFn: func(ctx context.Context, serial, title, author string) (*model.Book, error) {
			return nil, dupErr(serial)
		},
	}
	rec := doJSON(t, newController(m).Create, http.MethodPost, "/v1/books",
		`{"serial_number":"222222","title":"T","author":"A"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "222222")
}

func TestDetail_NotFound(t *testing.T) {
	m := &svcMock{
		getFn: func(ctx context.Context, serial string) (*model.Book, error) {
			return nil, notFoundErr(serial)
		},
	}
	rec := doJSON(t, newController(m).Detail, http.MethodGet, "/v1/books/999999", "",
		map[string]string{"serial_number": "999999"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBorrow_Conflict(t *testing.T) {
	m := &svcMock{
		borrowFn: func(ctx context.Context, serial, card string) (*model.Book, error) {
			return nil, alreadyBorrowedErr(serial, "111111")
		},
	}
	rec := doJSON(t, newController(m).Borrow, http.MethodPost, "/v1/books/123458/borrow",
		`{"borrower_card":"222222"}`, map[string]string{"serial_number": "123458"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "111111")
}

func TestReturn_OK(t *testing.T) {
	m := &svcMock{
		returnFn: func(ctx context.Context, serial string) (*model.Book, error) {
			return sampleBook(serial), nil
		},
	}
	rec := doJSON(t, newController(m).Return, http.MethodPost, "/v1/books/123457/return", "",
		map[string]string{"serial_number": "123457"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDelete_OverrideFlag(t *testing.T) {
	var gotAllow bool
	m := &svcMock{
		deleteFn: func(ctx context.Context, serial string, allowIfBorrowed bool) error {
			gotAllow = allowIfBorrowed
			return nil
		},
	}
	h := newController(m)

	rec := doJSON(t, h.Delete, http.MethodDelete, "/v1/books/123460", "",
		map[string]string{"serial_number": "123460"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.False(t, gotAllow)

	rec = doJSON(t, h.Delete, http.MethodDelete, "/v1/books/123460?allow_if_borrowed=true", "",
		map[string]string{"serial_number": "123460"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, gotAllow)
}

// Setting is_borrowed=true with no card is a request-shape error; the
// service must never be invoked.
func TestSetStatus_CardRequiredBeforeService(t *testing.T) {
	m := &svcMock{
		setStatusFn: func(ctx context.Context, serial string, borrowed bool, card *string, when *time.Time) (*model.Book, error) {
			t.Fatal("service invoked despite missing borrower_card")
			return nil, nil
		},
	}
	rec := doJSON(t, newController(m).SetStatus, http.MethodPatch, "/v1/books/123461/status",
		`{"is_borrowed":true}`, map[string]string{"serial_number": "123461"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "borrower_card")
}

func TestSetStatus_PassesWhen(t *testing.T) {
	var gotWhen *time.Time
	m := &svcMock{
		setStatusFn: func(ctx context.Context, serial string, borrowed bool, card *string, when *time.Time) (*model.Book, error) {
			gotWhen = when
			b := sampleBook(serial)
			b.IsBorrowed = true
			b.BorrowedBy = card
			b.BorrowedAt = when
			return b, nil
		},
	}
	rec := doJSON(t, newController(m).SetStatus, http.MethodPatch, "/v1/books/123461/status",
		`{"is_borrowed":true,"borrower_card":"111111","when":"2024-05-01T12:00:00Z"}`,
		map[string]string{"serial_number": "123461"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotWhen)
	require.Equal(t, 2024, gotWhen.Year())
}

func TestList_FilterParsing(t *testing.T) {
	var got booksvc.ListFilter
	m := &svcMock{
		listFn: func(ctx context.Context, f booksvc.ListFilter) ([]model.Book, error) {
			got = f
			return []model.Book{*sampleBook("123456")}, nil
		},
	}
	rec := doJSON(t, newController(m).List, http.MethodGet,
		"/v1/books?is_borrowed=true&borrower_card=111111&offset=5&limit=20", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Borrowed)
	require.True(t, *got.Borrowed)
	require.NotNil(t, got.BorrowerCard)
	require.Equal(t, "111111", *got.BorrowerCard)
	require.Equal(t, 5, got.Offset)
	require.Equal(t, 20, got.Limit)
	require.Contains(t, rec.Body.String(), `"data"`)
}

func TestList_BadBorrowedFlag(t *testing.T) {
	m := &svcMock{
		listFn: func(ctx context.Context, f bookrepo.ListFilter) ([]model.Book, error) {
			t.Fatal("list must not run with a malformed is_borrowed")
			return nil, nil
		},
	}
	rec := doJSON(t, newController(m).List, http.MethodGet, "/v1/books?is_borrowed=banana", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- helpers building coded errors through the real service ---

func dupErr(serial string) error {
	return svcErr(booksvc.ErrDuplicateSerial, "book with serial "+serial+" already exists")
}

func notFoundErr(serial string) error {
	return svcErr(booksvc.ErrBookNotFound, "book with serial "+serial+" not found")
}

func alreadyBorrowedErr(serial, card string) error {
	return svcErr(booksvc.ErrAlreadyBorrowed, "book "+serial+" already borrowed by "+card)
}

type testCodedErr struct {
	code booksvc.ErrCode
	msg  string
}

func (e testCodedErr) Error() string         { return e.msg }
func (e testCodedErr) Code() booksvc.ErrCode { return e.code }

func svcErr(code booksvc.ErrCode, msg string) error {
	return testCodedErr{code: code, msg: msg}
}
