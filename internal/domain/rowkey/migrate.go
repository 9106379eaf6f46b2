package rowkey

import (
	"sort"

	"github.com/rpggio/siteflow/internal/domain/site"
)

// Migration maps keys stored under a previous header order onto the keys the
// same rows resolve to now.
type Migration struct {
	Moves     map[RowKey]RowKey
	Unmatched []RowKey
}

// Migrate associates known keys with re-ingested rows. When the previous header
// order is known each row's old key is recomputed exactly. Otherwise an old key
// is matched by its leading value tuple, and only when exactly one row carries
// that tuple and that row matches no other key. Anything else is unmatched and
// callers must treat its state as absent.
func Migrate(fileID string, rows []site.Row, oldHeaders, newHeaders []string, known []RowKey) Migration {
	m := Migration{Moves: make(map[RowKey]RowKey)}

	pending := make(map[RowKey]bool)
	for _, k := range known {
		if k.FileID == fileID {
			pending[k] = true
		}
	}

	newKeys := make([]RowKey, len(rows))
	open := make([]bool, len(rows))
	for i, row := range rows {
		newKeys[i] = Resolve(fileID, row, newHeaders)
		if pending[newKeys[i]] {
			delete(pending, newKeys[i])
			continue
		}
		open[i] = true
	}

	if len(oldHeaders) > 0 {
		for i, row := range rows {
			if !open[i] {
				continue
			}
			old := Resolve(fileID, row, oldHeaders)
			if pending[old] {
				m.Moves[old] = newKeys[i]
				delete(pending, old)
				open[i] = false
			}
		}
	}

	byKey := make(map[RowKey][]int)
	byRow := make(map[int][]RowKey)
	for k := range pending {
		tuple := k.Tuple()
		if len(tuple) == 0 {
			continue
		}
		for i, row := range rows {
			if open[i] && containsAll(row, tuple) {
				byKey[k] = append(byKey[k], i)
				byRow[i] = append(byRow[i], k)
			}
		}
	}
	for k, idx := range byKey {
		if len(idx) != 1 || len(byRow[idx[0]]) != 1 {
			continue
		}
		m.Moves[k] = newKeys[idx[0]]
		delete(pending, k)
		open[idx[0]] = false
	}

	for k := range pending {
		m.Unmatched = append(m.Unmatched, k)
	}
	sort.Slice(m.Unmatched, func(i, j int) bool {
		return m.Unmatched[i].String() < m.Unmatched[j].String()
	})
	return m
}

func containsAll(row site.Row, tuple []string) bool {
	avail := make(map[string]int, len(row))
	for _, v := range row {
		avail[v]++
	}
	for _, v := range tuple {
		if avail[v] == 0 {
			return false
		}
		avail[v]--
	}
	return true
}
