package worker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://keijiban.example.com"

// fakeNetwork sert des réponses fixes par URL; offline simule une coupure réseau
type fakeNetwork struct {
	mu        sync.Mutex
	responses map[string]string
	statuses  map[string]int
	offline   bool
	requests  []string
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		responses: map[string]string{
			testOrigin + "/":                        "<html>shell</html>",
			testOrigin + "/manifest.json":           `{"name":"keijiban"}`,
			testOrigin + "/icons/icon-192x192.png":  "png-192",
			testOrigin + "/icons/icon-512x512.png":  "png-512",
			testOrigin + "/posts/1":                 "<html>post 1</html>",
			"https://abc.supabase.co/rest/v1/posts": `[{"id":1}]`,
		},
		statuses: map[string]int{},
	}
}

func (n *fakeNetwork) setOffline(v bool) {
	n.mu.Lock()
	n.offline = v
	n.mu.Unlock()
}

func (n *fakeNetwork) RoundTrip(req *http.Request) (*http.Response, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req.Method+" "+req.URL.String())
	if n.offline {
		return nil, errors.New("réseau indisponible")
	}
	status := http.StatusOK
	body, ok := n.responses[req.URL.String()]
	if s, set := n.statuses[req.URL.String()]; set {
		status = s
	} else if !ok {
		status = http.StatusNotFound
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

type harness struct {
	worker  *Worker
	network *fakeNetwork
	caches  *MemoryCacheStorage
	tray    *Tray
	windows *WindowSet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		network: newFakeNetwork(),
		caches:  NewMemoryCacheStorage(),
		tray:    NewTray(true),
		windows: NewWindowSet(testOrigin),
	}
	w, err := New(DefaultConfig(testOrigin), h.network, h.caches, h.tray, h.windows)
	require.NoError(t, err)
	h.worker = w

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) install(t *testing.T) {
	t.Helper()
	require.NoError(t, h.worker.Dispatch(context.Background(), InstallEvent{}))
	require.Equal(t, StateActive, h.worker.State())
}

func (h *harness) get(t *testing.T, url, accept string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return h.worker.RoundTrip(req)
}

func (h *harness) cacheKeys(t *testing.T) []string {
	t.Helper()
	cache, err := h.caches.Open(context.Background(), DefaultConfig(testOrigin).CacheName)
	require.NoError(t, err)
	keys, err := cache.Keys(context.Background())
	require.NoError(t, err)
	return keys
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestNew_OrigineInvalide(t *testing.T) {
	_, err := New(DefaultConfig("pas-une-origine"), nil, NewMemoryCacheStorage(), NewTray(true), NewWindowSet(""))
	assert.Error(t, err)
}

func TestInstall_PrecacheEtActivation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	old, err := h.caches.Open(ctx, "keijiban-v2")
	require.NoError(t, err)
	require.NoError(t, old.Put(ctx, &Entry{URL: testOrigin + "/", Status: 200, Body: []byte("ancienne coquille")}))
	tab := h.windows.Add(testOrigin+"/", false)

	h.install(t)

	names, err := h.caches.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keijiban-v3"}, names)

	assert.ElementsMatch(t, []string{
		testOrigin + "/",
		testOrigin + "/manifest.json",
		testOrigin + "/icons/icon-192x192.png",
		testOrigin + "/icons/icon-512x512.png",
	}, h.cacheKeys(t))

	windows := h.windows.Windows()
	require.Len(t, windows, 1)
	assert.Equal(t, tab.ID, windows[0].ID)
	assert.True(t, windows[0].Controlled, "les fenêtres ouvertes sont revendiquées à l'activation")
}

func TestInstall_EchecAtomique(t *testing.T) {
	h := newHarness(t)
	h.network.statuses[testOrigin+"/icons/icon-512x512.png"] = http.StatusInternalServerError

	err := h.worker.Dispatch(context.Background(), InstallEvent{})
	require.Error(t, err)
	assert.Equal(t, StateRedundant, h.worker.State())

	names, err := h.caches.Names(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names, "aucune entrée n'est écrite si un asset échoue")

	err = h.worker.Dispatch(context.Background(), ActivateEvent{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestInstall_HorsSequence(t *testing.T) {
	h := newHarness(t)
	h.install(t)
	assert.ErrorIs(t, h.worker.Dispatch(context.Background(), InstallEvent{}), ErrInvalidState)
	assert.NoError(t, h.worker.Dispatch(context.Background(), ActivateEvent{}))
}

func TestFetch_AvantActivationPasDInterception(t *testing.T) {
	h := newHarness(t)
	resp, err := h.get(t, testOrigin+"/posts/1", "")
	require.NoError(t, err)
	readBody(t, resp)

	names, err := h.caches.Names(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFetch_NetworkFirstAllerRetour(t *testing.T) {
	h := newHarness(t)
	h.install(t)

	resp, err := h.get(t, testOrigin+"/posts/1", "")
	require.NoError(t, err)
	online := readBody(t, resp)
	assert.Equal(t, "<html>post 1</html>", online)
	assert.Contains(t, h.cacheKeys(t), testOrigin+"/posts/1")

	h.network.setOffline(true)
	resp, err = h.get(t, testOrigin+"/posts/1#commentaires", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, online, readBody(t, resp))
}

func TestFetch_ReseauPrioritaire(t *testing.T) {
	h := newHarness(t)
	h.install(t)

	h.network.mu.Lock()
	h.network.responses[testOrigin+"/"] = "<html>nouvelle coquille</html>"
	h.network.mu.Unlock()

	resp, err := h.get(t, testOrigin+"/", "text/html")
	require.NoError(t, err)
	assert.Equal(t, "<html>nouvelle coquille</html>", readBody(t, resp))

	h.network.setOffline(true)
	resp, err = h.get(t, testOrigin+"/", "text/html")
	require.NoError(t, err)
	assert.Equal(t, "<html>nouvelle coquille</html>", readBody(t, resp), "le cache garde la dernière réponse réussie")
}

func TestFetch_JamaisEnCache(t *testing.T) {
	h := newHarness(t)
	h.install(t)
	client := &http.Client{Transport: h.worker}

	for _, offline := range []bool{false, true} {
		h.network.setOffline(offline)

		resp, err := client.Post(testOrigin+"/api/notifications/send", "application/json", strings.NewReader(`{"title":"t"}`))
		if err == nil {
			resp.Body.Close()
		}
		resp, err = client.Get("https://abc.supabase.co/rest/v1/posts")
		if err == nil {
			resp.Body.Close()
		}
		resp, err = client.Get("https://cdn.other.example/lib.js")
		if err == nil {
			resp.Body.Close()
		}
	}

	for _, key := range h.cacheKeys(t) {
		assert.NotContains(t, key, "/api/notifications/send")
		assert.NotContains(t, key, "supabase.co")
		assert.NotContains(t, key, "cdn.other.example")
	}
}

func TestFetch_ReponseEnErreurPasEnCache(t *testing.T) {
	h := newHarness(t)
	h.install(t)

	resp, err := h.get(t, testOrigin+"/posts/999", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	readBody(t, resp)
	assert.NotContains(t, h.cacheKeys(t), testOrigin+"/posts/999")
}

func TestFetch_CoquilleHorsLigne(t *testing.T) {
	h := newHarness(t)
	h.install(t)
	h.network.setOffline(true)

	resp, err := h.get(t, testOrigin+"/posts/42", "text/html,application/xhtml+xml")
	require.NoError(t, err)
	assert.Equal(t, "<html>shell</html>", readBody(t, resp))

	_, err = h.get(t, testOrigin+"/data.json", "application/json")
	assert.ErrorIs(t, err, ErrNoCachedResponse)
}

func TestPush_DeuxMessagesUneNotification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.worker.Dispatch(ctx, PushEvent{Data: []byte(`{"title":"Premier","body":"a","url":"/posts/1"}`)}))
	require.NoError(t, h.worker.Dispatch(ctx, PushEvent{Data: []byte(`{"title":"Second","body":"b","url":"/posts/2"}`)}))

	visible := h.tray.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, "Second", visible[0].Title)
	assert.Equal(t, "keijiban-notification", visible[0].Tag)
	assert.True(t, visible[0].Renotify)
	assert.Equal(t, 2, h.tray.Alerts(), "le remplacement alerte de nouveau")
	assert.True(t, h.tray.Badge())
}

func TestPush_SansDonneesIgnore(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.worker.Dispatch(context.Background(), PushEvent{}))
	assert.Empty(t, h.tray.Visible())
	assert.False(t, h.tray.Badge())
}

func TestPush_ValeursParDefaut(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.worker.Dispatch(context.Background(), PushEvent{Data: []byte(`{}`)}))

	visible := h.tray.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, Notification{
		Title:    "新しいお知らせ",
		Body:     "",
		Icon:     "/icons/icon-192x192.png",
		Badge:    "/icons/icon-192x192.png",
		Tag:      "keijiban-notification",
		Renotify: true,
		URL:      "/",
	}, visible[0])
}

func TestPush_MessageIllisible(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.worker.Dispatch(context.Background(), PushEvent{Data: []byte("pas du json")}))
	assert.Empty(t, h.tray.Visible())
}

func TestPush_BadgeNonSupporte(t *testing.T) {
	tray := NewTray(false)
	w, err := New(DefaultConfig(testOrigin), newFakeNetwork(), NewMemoryCacheStorage(), tray, NewWindowSet(testOrigin))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, w.Dispatch(ctx, PushEvent{Data: []byte(`{"title":"t"}`)}))
	assert.Len(t, tray.Visible(), 1)
	require.NoError(t, w.Dispatch(ctx, NotificationClickEvent{Notification: tray.Visible()[0]}))
}

func TestClick_FocaliseLaFenetreExistante(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.windows.Add(testOrigin+"/posts/7", false)
	target := h.windows.Add(testOrigin+"/posts/42", false)

	require.NoError(t, h.worker.Dispatch(ctx, PushEvent{Data: []byte(`{"title":"t","url":"/posts/42"}`)}))
	n := h.tray.Visible()[0]
	require.NoError(t, h.worker.Dispatch(ctx, NotificationClickEvent{Notification: n}))

	assert.Empty(t, h.tray.Visible())
	assert.False(t, h.tray.Badge())
	windows := h.windows.Windows()
	require.Len(t, windows, 2)
	for _, w := range windows {
		assert.Equal(t, w.ID == target.ID, w.Focused)
	}
}

func TestClick_OuvreUneNouvelleFenetre(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.windows.Add(testOrigin+"/posts/7", true)

	require.NoError(t, h.worker.Dispatch(ctx, NotificationClickEvent{Notification: Notification{Tag: "keijiban-notification", URL: "/posts/9"}}))

	windows := h.windows.Windows()
	require.Len(t, windows, 2)
	assert.Equal(t, testOrigin+"/posts/9", windows[1].URL)
	assert.True(t, windows[1].Focused)
}

// slowNotifier mesure le nombre de gestionnaires exécutés en même temps
type slowNotifier struct {
	*Tray
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *slowNotifier) ShowNotification(ctx context.Context, n Notification) error {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if cur <= m || s.maxSeen.CompareAndSwap(m, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return s.Tray.ShowNotification(ctx, n)
}

func TestDispatch_GestionnairesSerialises(t *testing.T) {
	notifier := &slowNotifier{Tray: NewTray(true)}
	w, err := New(DefaultConfig(testOrigin), newFakeNetwork(), NewMemoryCacheStorage(), notifier, NewWindowSet(testOrigin))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Dispatch(ctx, PushEvent{Data: []byte(`{"title":"t"}`)}))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), notifier.maxSeen.Load())
	assert.Equal(t, 10, notifier.Alerts())
	assert.Len(t, notifier.Visible(), 1)
}

func TestDispatch_ApresArret(t *testing.T) {
	w, err := New(DefaultConfig(testOrigin), newFakeNetwork(), NewMemoryCacheStorage(), NewTray(true), NewWindowSet(testOrigin))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Run(ctx), context.Canceled)

	assert.ErrorIs(t, w.Dispatch(context.Background(), PushEvent{}), ErrStopped)
	assert.Error(t, w.Run(context.Background()), "une seule boucle par worker")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "installing", StateInstalling.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "redundant", StateRedundant.String())
}
