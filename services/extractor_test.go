package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPageFetcher struct {
	mock.Mock
}

func (m *MockPageFetcher) Fetch(ctx context.Context, url string) (*http.Response, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func htmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestExtract_MainContent(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("Fetch", mock.Anything, "http://site.com").Return(htmlResponse(http.StatusOK, `
		<html><body>
			<p>navigation noise</p>
			<main>
				<p>First paragraph.</p>
				<p>Second paragraph.</p>
			</main>
		</body></html>
	`), nil)

	e := NewPageExtractor(WithFetcher(fetcher))
	text, err := e.Extract(context.TODO(), "http://site.com")
	assert.NoError(t, err)
	assert.Equal(t, "First paragraph. Second paragraph.", text)
	fetcher.AssertExpectations(t)
}

func TestExtract_BodyParagraphFallback(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("Fetch", mock.Anything, "http://site.com").Return(htmlResponse(http.StatusOK, `
		<html><body><div><p>Only paragraph here.</p></div></body></html>
	`), nil)

	e := NewPageExtractor(WithFetcher(fetcher))
	text, err := e.Extract(context.TODO(), "http://site.com")
	assert.NoError(t, err)
	assert.Equal(t, "Only paragraph here.", text)
}

func TestExtract_TokenWalkFallback(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("Fetch", mock.Anything, "http://site.com").Return(htmlResponse(http.StatusOK, `
		<html><body>
			<script>var ignored = true;</script>
			<style>.ignored {}</style>
			<div>Bare text without paragraphs</div>
		</body></html>
	`), nil)

	e := NewPageExtractor(WithFetcher(fetcher))
	text, err := e.Extract(context.TODO(), "http://site.com")
	assert.NoError(t, err)
	assert.Contains(t, text, "Bare text without paragraphs")
	assert.NotContains(t, text, "ignored")
}

func TestExtract_EmptyPage(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("Fetch", mock.Anything, "http://site.com").Return(htmlResponse(http.StatusOK, `
		<html><body><script>only();</script></body></html>
	`), nil)

	e := NewPageExtractor(WithFetcher(fetcher))
	text, err := e.Extract(context.TODO(), "http://site.com")
	assert.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestExtract_FetchError(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("Fetch", mock.Anything, "http://down.com").Return(nil, errors.New("connection refused"))

	e := NewPageExtractor(WithFetcher(fetcher))
	_, err := e.Extract(context.TODO(), "http://down.com")
	assert.Error(t, err)
}

func TestExtract_NonOKStatus(t *testing.T) {
	fetcher := new(MockPageFetcher)
	fetcher.On("Fetch", mock.Anything, "http://site.com").Return(htmlResponse(http.StatusNotFound, "not found"), nil)

	e := NewPageExtractor(WithFetcher(fetcher))
	_, err := e.Extract(context.TODO(), "http://site.com")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}
