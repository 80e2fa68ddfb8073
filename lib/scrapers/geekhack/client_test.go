package geekhack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientListPage(t *testing.T) {
	fixture, err := os.ReadFile("testdata/listing.html")
	if err != nil {
		t.Fatal(err)
	}

	var requestedBoards []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedBoards = append(requestedBoards, r.URL.Query().Get("board"))
		w.Write(fixture)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseURL: server.URL})

	threads, err := client.ListPage(context.Background(), InterestChecks, 1)
	require.NoError(t, err)
	require.Len(t, threads, 3)
	require.EqualValues(t, 127544, threads[0].ID)

	_, err = client.ListPage(context.Background(), InterestChecks, 3)
	require.NoError(t, err)

	// page 1 addresses the bare board, later pages carry a post offset
	require.Equal(t, []string{"132", "132.100"}, requestedBoards)
}

func TestClientListPageFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseURL: server.URL})

	_, err := client.ListPage(context.Background(), GroupBuys, 1)
	require.ErrorIs(t, err, ErrFetch)
}

func TestClientPageCount(t *testing.T) {
	fixture, err := os.ReadFile("testdata/listing.html")
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseURL: server.URL})

	count, err := client.PageCount(context.Background(), InterestChecks)
	require.NoError(t, err)
	require.Equal(t, 212, count)
}
