package track

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"datalayer"
	"datalayer/net"
	"datalayer/store"
)

// Server exposes the tracker over HTTP: spends come in, reconstructed heads
// go out.
type Server struct {
	Tracker *Tracker
	Store   *store.Store
}

// SpendJSON is the wire form of a coin spend. Byte fields are hex.
type SpendJSON struct {
	ParentCoinInfo string `json:"parent_coin_info"`
	PuzzleHash     string `json:"puzzle_hash"`
	Amount         uint64 `json:"amount"`
	PuzzleReveal   string `json:"puzzle_reveal"`
	Solution       string `json:"solution"`
}

// HeadJSON is the wire form of a reconstructed head.
type HeadJSON struct {
	LauncherID      string   `json:"launcher_id"`
	ParentCoinInfo  string   `json:"parent_coin_info"`
	PuzzleHash      string   `json:"puzzle_hash"`
	Amount          uint64   `json:"amount"`
	OwnerPuzzleHash string   `json:"owner_puzzle_hash"`
	RootHash        string   `json:"root_hash"`
	Manifest        []string `json:"manifest"`
}

// Spend accepts one coin spend, reconstructs the successor state, and
// replies with the updated head. Non-protocol spends get 204.
func (s *Server) Spend(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "reading request body: %s", err)
		return
	}
	var sj SpendJSON
	err = json.Unmarshal(data, &sj)
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "parsing request body: %s", err)
		return
	}
	cs, err := sj.coinSpend()
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "decoding coin spend: %s", err)
		return
	}

	ds, err := s.Tracker.ProcessSpend(req.Context(), cs)
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "processing spend: %s", err)
		return
	}
	if ds == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	log.Printf("processed spend of coin %x for object %x", cs.Coin.ID(), ds.Info.LauncherID)
	writeJSON(w, headJSON(store.Head{
		LauncherID:      ds.Info.LauncherID,
		Coin:            ds.Coin,
		OwnerPuzzleHash: ds.Info.OwnerPuzzleHash,
		RootHash:        ds.Info.Metadata.RootHash(),
		Manifest:        datalayer.RecreationMemos(ds.Info.LauncherID, ds.Info.OwnerPuzzleHash, ds.Info.DelegatedPuzzles),
	}))
}

// Head replies with the stored head for the launcher id in the query.
func (s *Server) Head(w http.ResponseWriter, req *http.Request) {
	launcherID, err := hashParam(req, "launcher")
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "parsing launcher id: %s", err)
		return
	}
	h, err := s.Store.Head(req.Context(), launcherID)
	if err != nil {
		net.Errorf(w, http.StatusNotFound, "getting head %x: %s", launcherID, err)
		return
	}
	writeJSON(w, headJSON(h))
}

// Heads replies with every stored head.
func (s *Server) Heads(w http.ResponseWriter, req *http.Request) {
	out := []HeadJSON{}
	err := s.Store.Heads(req.Context(), func(h store.Head) error {
		out = append(out, headJSON(h))
		return nil
	})
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "listing heads: %s", err)
		return
	}
	writeJSON(w, out)
}

func (sj SpendJSON) coinSpend() (datalayer.CoinSpend, error) {
	var cs datalayer.CoinSpend
	for _, f := range []struct {
		src string
		dst *datalayer.Hash
	}{
		{sj.ParentCoinInfo, &cs.Coin.ParentCoinInfo},
		{sj.PuzzleHash, &cs.Coin.PuzzleHash},
	} {
		b, err := hex.DecodeString(f.src)
		if err != nil {
			return datalayer.CoinSpend{}, err
		}
		copy(f.dst[:], b)
	}
	cs.Coin.Amount = sj.Amount
	var err error
	cs.PuzzleReveal, err = hex.DecodeString(sj.PuzzleReveal)
	if err != nil {
		return datalayer.CoinSpend{}, err
	}
	cs.Solution, err = hex.DecodeString(sj.Solution)
	return cs, err
}

func headJSON(h store.Head) HeadJSON {
	manifest := make([]string, 0, len(h.Manifest))
	for _, m := range h.Manifest {
		manifest = append(manifest, hex.EncodeToString(m))
	}
	return HeadJSON{
		LauncherID:      hex.EncodeToString(h.LauncherID[:]),
		ParentCoinInfo:  hex.EncodeToString(h.Coin.ParentCoinInfo[:]),
		PuzzleHash:      hex.EncodeToString(h.Coin.PuzzleHash[:]),
		Amount:          h.Coin.Amount,
		OwnerPuzzleHash: hex.EncodeToString(h.OwnerPuzzleHash[:]),
		RootHash:        hex.EncodeToString(h.RootHash[:]),
		Manifest:        manifest,
	}
}

func hashParam(req *http.Request, name string) (datalayer.Hash, error) {
	var h datalayer.Hash
	b, err := hex.DecodeString(req.FormValue(name))
	if err != nil {
		return datalayer.Hash{}, err
	}
	copy(h[:], b)
	return h, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Printf("sending response: %s", err)
	}
}
