package cascade

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/stretchr/testify/mock"
	"github.com/valyala/fasthttp"
)

type MockInternalClient struct {
	mock.Mock
}

func (m *MockInternalClient) Do(req *fasthttp.Request, resp *fasthttp.Response) error {
	args := m.Called(req, resp)
	return args.Error(0)
}

type MockFileSystem struct {
	MkdirAllErr error
	OpenFileErr error
}

func (m MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return m.MkdirAllErr
}

func (m MockFileSystem) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	if m.OpenFileErr != nil {
		return nil, m.OpenFileErr
	}
	return nil, errors.New("not implemented")
}

func createTestServer(fn func(rw http.ResponseWriter, req *http.Request)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(fn))
}
