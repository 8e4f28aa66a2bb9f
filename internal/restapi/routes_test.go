package restapi

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/kaspanet/ordindexer/internal/chain"
	"github.com/kaspanet/ordindexer/internal/headerlist"
	"github.com/kaspanet/ordindexer/internal/store"
	"github.com/kaspanet/ordindexer/internal/tokenengine"
	"github.com/kaspanet/ordindexer/util/chainhash"
)

func newTestRouter(t *testing.T) (*mux.Router, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	deps := &Deps{Store: st, Headers: headerlist.New(st.TxStore)}
	router := mux.NewRouter()
	addRoutes(router, deps)
	return router, st
}

func doRequest(t *testing.T, router *mux.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMainRoute(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, "GET", "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetTokenHandlerNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, "GET", "/token/ordi")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an undeployed tick, got %d", rec.Code)
	}
}

func TestGetTokenHandlerFound(t *testing.T) {
	router, st := newTestRouter(t)
	e := tokenengine.New(st)
	e.ParseTokenAction(100, 0, "", "text/plain",
		[]byte(`{"p":"bel-20","op":"deploy","tick":"ordi","max":"21000000","lim":"1000"}`),
		chain.Outpoint{}, chain.Outpoint{})
	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	rec := doRequest(t, router, "GET", "/token/ordi")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var info tokenengine.TokenInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if info.Deploy.Max != 21000000 {
		t.Fatalf("unexpected deploy max: %d", info.Deploy.Max)
	}
}

// encodeExtraDataForTest mirrors movetracker's unexported row layout
// (number, genesis-txid, height, value, content-length, then
// length-prefixed content-type and owner) closely enough to seed a row
// this package's handler can decode.
func encodeExtraDataForTest(genesisTxID chainhash.Hash, contentType []byte) []byte {
	buf := make([]byte, 0, 8+32+8+8+8+4+len(contentType)+4)
	var b8 [8]byte
	binary.LittleEndian.PutUint64(b8[:], 7) // number
	buf = append(buf, b8[:]...)
	buf = append(buf, genesisTxID[:]...)
	binary.LittleEndian.PutUint64(b8[:], 0) // height
	buf = append(buf, b8[:]...)
	binary.LittleEndian.PutUint64(b8[:], 0) // value
	buf = append(buf, b8[:]...)
	binary.LittleEndian.PutUint64(b8[:], uint64(len(contentType))) // content-length
	buf = append(buf, b8[:]...)
	var b4 [4]byte
	binary.LittleEndian.PutUint32(b4[:], uint32(len(contentType)))
	buf = append(buf, b4[:]...)
	buf = append(buf, contentType...)
	binary.LittleEndian.PutUint32(b4[:], 0) // owner length
	buf = append(buf, b4[:]...)
	return buf
}

func TestGetInscriptionAtOutpointHandlerIncludesMedia(t *testing.T) {
	router, st := newTestRouter(t)

	var txid chainhash.Hash
	txid[0] = 0xab

	row := encodeExtraDataForTest(txid, []byte("image/png"))
	if err := st.Inscription.Put(store.InscriptionKey(&txid, 0, 0), row); err != nil {
		t.Fatalf("seed inscription: %v", err)
	}

	rec := doRequest(t, router, "GET", "/inscription/"+txid.String()+"/0")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var got []inscriptionEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 inscription, got %d", len(got))
	}
	if got[0].Media != "image" {
		t.Fatalf("expected media %q, got %q", "image", got[0].Media)
	}
}

func TestGetScriptStatsHandlerRejectsBadScriptHash(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, "GET", "/scripthash/not-hex/stats")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a malformed scripthash, got %d", rec.Code)
	}
}

func TestGetScriptUtxosHandlerNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	sh := store.HashScript([]byte{0x00, 0x14})
	rec := doRequest(t, router, "GET", "/scripthash/"+hex.EncodeToString(sh[:])+"/utxos")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for no cached snapshot, got %d", rec.Code)
	}
}
