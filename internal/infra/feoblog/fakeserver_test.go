package feoblog

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
)

type storedItem struct {
	sig  Signature
	raw  []byte
	item *Item
}

// fakeServer is a minimal FeoBlog server. It verifies signatures on upload
// and pages listings pageSize items at a time.
type fakeServer struct {
	t        *testing.T
	mu       sync.Mutex
	items    map[UserID][]storedItem
	pageSize int
	requests []string

	// failNext makes the next n requests fail with status failStatus.
	failNext   int
	failStatus int
}

func newFakeServer(t *testing.T, pageSize int) (*fakeServer, *httptest.Server) {
	f := &fakeServer{t: t, items: map[UserID][]storedItem{}, pageSize: pageSize}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /u/{uid}/proto3", f.list)
	mux.HandleFunc("GET /u/{uid}/i/{sig}/proto3", f.get)
	mux.HandleFunc("PUT /u/{uid}/i/{sig}/proto3", f.put)
	mux.HandleFunc("GET /u/{uid}/profile/proto3", f.profile)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
		fail := f.failNext > 0
		if fail {
			f.failNext--
		}
		f.mu.Unlock()
		if fail {
			w.WriteHeader(f.failStatus)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeServer) user(w http.ResponseWriter, r *http.Request) (UserID, bool) {
	uid, err := ParseUserID(r.PathValue("uid"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return uid, false
	}
	return uid, true
}

func (f *fakeServer) list(w http.ResponseWriter, r *http.Request) {
	uid, ok := f.user(w, r)
	if !ok {
		return
	}
	var before int64
	if v := r.URL.Query().Get("before"); v != "" {
		var err error
		if before, err = strconv.ParseInt(v, 10, 64); err != nil {
			http.Error(w, "bad before", http.StatusBadRequest)
			return
		}
	}

	f.mu.Lock()
	all := append([]storedItem(nil), f.items[uid]...)
	f.mu.Unlock()
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].item.TimestampMsUTC > all[b].item.TimestampMsUTC
	})

	list := &ItemList{}
	for _, it := range all {
		if before != 0 && it.item.TimestampMsUTC >= before {
			continue
		}
		if len(list.Items) == f.pageSize {
			break
		}
		itemType := ItemTypePost
		if it.item.Profile != nil {
			itemType = ItemTypeProfile
		}
		list.Items = append(list.Items, ItemListEntry{
			UserID: uid, Signature: it.sig, TimestampMsUTC: it.item.TimestampMsUTC, ItemType: itemType,
		})
	}
	remaining := 0
	for _, it := range all {
		if before == 0 || it.item.TimestampMsUTC < before {
			remaining++
		}
	}
	list.NoMoreItems = remaining <= f.pageSize

	w.Header().Set("Content-Type", protoContentType)
	_, _ = w.Write(list.Marshal())
}

func (f *fakeServer) get(w http.ResponseWriter, r *http.Request) {
	uid, ok := f.user(w, r)
	if !ok {
		return
	}
	sig, err := ParseSignature(r.PathValue("sig"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items[uid] {
		if it.sig == sig {
			_, _ = w.Write(it.raw)
			return
		}
	}
	http.NotFound(w, r)
}

func (f *fakeServer) put(w http.ResponseWriter, r *http.Request) {
	uid, ok := f.user(w, r)
	if !ok {
		return
	}
	sig, err := ParseSignature(r.PathValue("sig"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !Verify(uid, sig, raw) {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}
	item, err := UnmarshalItem(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items[uid] {
		if it.sig == sig {
			w.WriteHeader(http.StatusAccepted)
			return
		}
	}
	f.items[uid] = append(f.items[uid], storedItem{sig: sig, raw: raw, item: item})
	w.WriteHeader(http.StatusCreated)
}

func (f *fakeServer) profile(w http.ResponseWriter, r *http.Request) {
	uid, ok := f.user(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *storedItem
	for i, it := range f.items[uid] {
		if it.item.Profile == nil {
			continue
		}
		if latest == nil || it.item.TimestampMsUTC >= latest.item.TimestampMsUTC {
			latest = &f.items[uid][i]
		}
	}
	if latest == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("signature", latest.sig.String())
	_, _ = w.Write(latest.raw)
}

// posts returns the stored posts for uid in upload order.
func (f *fakeServer) posts(uid UserID) []*Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Item
	for _, it := range f.items[uid] {
		if it.item.Post != nil {
			out = append(out, it.item)
		}
	}
	return out
}

func (f *fakeServer) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}
