package nb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notebox/internal/drive"
	"notebox/internal/nb"
	"notebox/internal/testutil"
	"notebox/internal/transfer"
)

// lostReply delivers every PUT to the relay and then reports a network
// error, so the client cannot tell whether the bytes arrived.
type lostReply struct{ next http.RoundTripper }

func (l lostReply) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := l.next.RoundTrip(r)
	if err != nil || r.Method != http.MethodPut {
		return resp, err
	}
	resp.Body.Close()
	return nil, errors.New("connection reset by peer")
}

func TestUploader_AmbiguousStreamCommitsOnce(t *testing.T) {
	srv := httptest.NewUnstartedServer(nil)
	publicURL := "http://" + srv.Listener.Addr().String()
	backend := drive.NewHostedBackend(testutil.NewTestVault(), publicURL, testutil.NewStubIDGenerator(), nil, nil)
	srv.Config.Handler = drive.NewServer(backend, nil)
	srv.Start()
	t.Cleanup(srv.Close)

	client := &http.Client{Transport: lostReply{next: srv.Client().Transport}}
	exec := transfer.NewExecutor(srv.URL+"/", client, 0, 5*time.Second, nil)

	f := newUploaderFixture(t)
	u := nb.NewUploader(f.catalog, f.ledger, exec, nil, testutil.FixedClock())

	item, err := u.Submit(context.Background(), fileSubmission("Lab report"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if want := publicURL + "/files/id-1"; item.Link != want {
		t.Errorf("Link = %q, want %q", item.Link, want)
	}

	if n := len(f.items(t)); n != 1 {
		t.Errorf("catalog has %d items, want 1", n)
	}
	if f.ledger.Saves() != 1 {
		t.Errorf("ledger saves = %d, want 1", f.ledger.Saves())
	}
	if rec, _ := f.ledger.Load(); rec != nil {
		t.Errorf("ledger still holds %+v", rec)
	}
	if st := u.Status(); st.State != nb.StateIdle {
		t.Errorf("State = %q, want idle", st.State)
	}
}
