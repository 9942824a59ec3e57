package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mind-engage/studentexam/internal/users"
)

// POST /users/bulk
// Accepts a JSON array body, or a multipart "file" holding CSV or JSON.
func BulkUpsertUsersHandler(repo users.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []users.Input
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				writeMessage(w, http.StatusBadRequest, "file required")
				return
			}
			defer f.Close()
			rows, err = decodeUserFile(f)
			if err != nil {
				writeMessage(w, http.StatusBadRequest, err.Error())
				return
			}
		} else if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			writeMessage(w, http.StatusBadRequest, "expected JSON array or multipart file")
			return
		}
		if len(rows) == 0 {
			respondJSON(w, http.StatusOK, map[string]int{"inserted": 0, "updated": 0})
			return
		}

		ins, upd, err := repo.Upsert(r.Context(), rows)
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

// decodeUserFile sniffs the first non-space byte to pick JSON or CSV.
func decodeUserFile(f io.Reader) ([]users.Input, error) {
	br := bufio.NewReader(f)
	for {
		b, err := br.Peek(1)
		if err != nil {
			return nil, errors.New("empty file")
		}
		if b[0] == ' ' || b[0] == '\n' || b[0] == '\r' || b[0] == '\t' {
			_, _ = br.ReadByte()
			continue
		}
		if b[0] == '[' {
			var rows []users.Input
			if err := json.NewDecoder(br).Decode(&rows); err != nil {
				return nil, errors.New("bad json")
			}
			return rows, nil
		}
		rows, err := users.ParseCSV(br)
		if err != nil {
			return nil, errors.New("bad csv: " + err.Error())
		}
		return rows, nil
	}
}

// GET /users?role=
func ListUsersHandler(repo users.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}
