package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type devtoolsCall struct {
	Method    string
	SessionID string
}

// devtools answers Chrome DevTools Protocol commands over a websocket with
// canned results, enough for chromedp to create and attach tabs.
type devtools struct {
	mu      sync.Mutex
	calls   []devtoolsCall
	targets int
}

func newDevtools(t *testing.T) (*devtools, string) {
	t.Helper()
	d := &devtools{}
	srv := httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(srv.Close)
	return d, "ws" + strings.TrimPrefix(srv.URL, "http") + "/devtools/browser/linkvault"
}

func (d *devtools) serve(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}
		var msg struct {
			ID        int64           `json:"id"`
			SessionID string          `json:"sessionId,omitempty"`
			Method    string          `json:"method"`
			Params    json.RawMessage `json:"params,omitempty"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		reply, err := json.Marshal(map[string]any{
			"id":        msg.ID,
			"sessionId": msg.SessionID,
			"result":    d.result(msg.Method, msg.SessionID, msg.Params),
		})
		if err != nil {
			return
		}
		if err := wsutil.WriteServerText(conn, reply); err != nil {
			return
		}
	}
}

func (d *devtools) result(method, sessionID string, params json.RawMessage) map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, devtoolsCall{Method: method, SessionID: sessionID})

	switch method {
	case "Target.createTarget":
		d.targets++
		return map[string]any{"targetId": fmt.Sprintf("target-%d", d.targets)}
	case "Target.attachToTarget":
		var p struct {
			TargetID string `json:"targetId"`
		}
		_ = json.Unmarshal(params, &p)
		return map[string]any{"sessionId": "session-" + p.TargetID}
	case "Runtime.evaluate":
		var p struct {
			Expression string `json:"expression"`
		}
		_ = json.Unmarshal(params, &p)
		if p.Expression == "self" {
			return map[string]any{"result": map[string]any{"type": "object", "className": "Window"}}
		}
		return map[string]any{"result": map[string]any{"type": "string", "value": "evaluated:" + p.Expression}}
	default:
		return map[string]any{}
	}
}

func (d *devtools) sessionsFor(method string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var sessions []string
	for _, c := range d.calls {
		if c.Method == method {
			sessions = append(sessions, c.SessionID)
		}
	}
	return sessions
}

func launchRemote(t *testing.T) (*devtools, Browser) {
	t.Helper()
	d, url := newDevtools(t)
	launchCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b, err := NewChromedpLauncher(ChromedpConfig{RemoteURL: url}).Launch(launchCtx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return d, b
}

func TestChromePageUsableAfterNewPage(t *testing.T) {
	t.Parallel()

	d, b := launchRemote(t)

	p, err := b.NewPage(context.Background())
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, p.SetUserAgent(ctx, "linkvault-test"))

	var title string
	require.NoError(t, p.Evaluate(ctx, "document.title", &title))
	assert.Equal(t, "evaluated:document.title", title)

	assert.Equal(t, []string{"session-target-2"}, d.sessionsFor("Emulation.setUserAgentOverride"))
}

func TestChromePageCommandsWithoutDeadline(t *testing.T) {
	t.Parallel()

	_, b := launchRemote(t)

	p, err := b.NewPage(context.Background())
	require.NoError(t, err)
	defer p.Close()

	done := make(chan error, 1)
	go func() { done <- p.SetUserAgent(context.Background(), "linkvault-test") }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("page command did not complete")
	}
}

func TestChromePagesAreIndependent(t *testing.T) {
	t.Parallel()

	d, b := launchRemote(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	first, err := b.NewPage(ctx)
	require.NoError(t, err)
	second, err := b.NewPage(ctx)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Close())
	require.ErrorIs(t, first.SetUserAgent(ctx, "ua"), ErrClosed)
	require.NoError(t, second.SetUserAgent(ctx, "ua"))

	assert.Equal(t, []string{"session-target-3"}, d.sessionsFor("Emulation.setUserAgentOverride"))
}

func TestChromeNewPageCanceled(t *testing.T) {
	t.Parallel()

	_, b := launchRemote(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.NewPage(ctx)
	require.Error(t, err)
}

func TestChromeBrowserCloseSignalsDone(t *testing.T) {
	t.Parallel()

	_, b := launchRemote(t)
	require.NoError(t, b.Close())

	select {
	case <-b.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("browser done not closed")
	}
}
