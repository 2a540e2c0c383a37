package admin

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/five82/melocuore/internal/api"
)

// Table is a loaded tab rendered to display strings.
type Table struct {
	Tab     Tab
	Columns []string
	Rows    []Row
	// Summary holds free-form lines shown under the table.
	Summary []string
}

// Row is one entry. ID is zero for rows that cannot be acted on.
type Row struct {
	ID        int64
	Label     string
	Cells     []string
	Superuser bool
	// Values pre-fills the edit form.
	Values Values
}

// Find returns the row with id.
func (t Table) Find(id int64) (Row, bool) {
	for _, r := range t.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

func dashboardTable(d api.Dashboard, s api.ModelStats) Table {
	storage := uint64(d.StorageUsedMB * 1024 * 1024)
	t := Table{
		Tab:     TabDashboard,
		Columns: []string{"Metric", "Value"},
		Rows: []Row{
			metric("Users", humanize.Comma(int64(d.UsersCount))),
			metric("Files", humanize.Comma(int64(d.FilesCount))),
			metric("Storage used", humanize.IBytes(storage)),
			metric("Artists", humanize.Comma(int64(s.ArtistsCount))),
			metric("Genres", humanize.Comma(int64(s.GenresCount))),
			metric("Moods", humanize.Comma(int64(s.MoodsCount))),
			metric("Tracks", humanize.Comma(int64(s.TracksCount))),
			metric("Analyses", humanize.Comma(int64(s.AnalysesCount))),
		},
	}
	for _, u := range d.RecentUsers {
		t.Summary = append(t.Summary, fmt.Sprintf("New user %s %s", u.Username, ago(u.DateJoined)))
	}
	for _, f := range d.RecentFiles {
		t.Summary = append(t.Summary, fmt.Sprintf("Upload %s (%s) %s", f.Name, humanize.Bytes(uint64(max(f.Size, 0))), ago(f.UploadedAt)))
	}
	for _, a := range s.RecentArtists {
		t.Summary = append(t.Summary, "New artist "+a.Name)
	}
	for _, tr := range s.RecentTracks {
		t.Summary = append(t.Summary, "New track "+tr.Title)
	}
	return t
}

func metric(name, value string) Row {
	return Row{Label: name, Cells: []string{name, value}}
}

func usersTable(users []api.User) Table {
	t := Table{Tab: TabUsers, Columns: []string{"ID", "Username", "Email", "Superuser", "Joined"}}
	for _, u := range users {
		t.Rows = append(t.Rows, Row{
			ID:        u.ID,
			Label:     u.Username,
			Cells:     []string{id(u.ID), u.Username, u.Email, yesNo(u.IsSuperuser), ago(u.DateJoined)},
			Superuser: u.IsSuperuser,
		})
	}
	return t
}

func filesTable(files []api.UploadedAsset) Table {
	t := Table{Tab: TabFiles, Columns: []string{"ID", "Name", "Type", "Size", "Uploaded"}}
	var total int64
	for _, f := range files {
		total += f.Size
		t.Rows = append(t.Rows, Row{
			ID:    f.ID,
			Label: f.Name,
			Cells: []string{id(f.ID), f.Name, f.ContentType, humanize.Bytes(uint64(max(f.Size, 0))), ago(f.UploadedAt)},
		})
	}
	t.Summary = []string{fmt.Sprintf("%d files, %s total", len(files), humanize.Bytes(uint64(max(total, 0))))}
	return t
}

func artistsTable(artists []api.Artist) Table {
	t := Table{Tab: TabArtists, Columns: []string{"ID", "Name", "Created"}}
	for _, a := range artists {
		t.Rows = append(t.Rows, Row{
			ID:     a.ID,
			Label:  a.Name,
			Cells:  []string{id(a.ID), a.Name, ago(a.CreatedAt)},
			Values: Values{"name": a.Name},
		})
	}
	return t
}

type named struct {
	id   int64
	name string
}

func genreRows(genres []api.Genre) []named {
	out := make([]named, 0, len(genres))
	for _, g := range genres {
		out = append(out, named{g.ID, g.Name})
	}
	return out
}

func moodRows(moods []api.Mood) []named {
	out := make([]named, 0, len(moods))
	for _, m := range moods {
		out = append(out, named{m.ID, m.Name})
	}
	return out
}

func namedTable(tab Tab, items []named) Table {
	t := Table{Tab: tab, Columns: []string{"ID", "Name"}}
	for _, n := range items {
		t.Rows = append(t.Rows, Row{
			ID:     n.id,
			Label:  n.name,
			Cells:  []string{id(n.id), n.name},
			Values: Values{"name": n.name},
		})
	}
	return t
}

type lookups struct {
	artists map[int64]string
	genres  map[int64]string
	moods   map[int64]string
}

func tracksTable(tracks []api.Track, names lookups) Table {
	t := Table{Tab: TabTracks, Columns: []string{"ID", "Title", "Artist", "Genre", "Mood", "BPM", "Duration"}}
	for _, tr := range tracks {
		values := Values{
			"title":    tr.Title,
			"artist":   strconv.FormatInt(tr.Artist, 10),
			"bpm":      strconv.Itoa(tr.BPM),
			"duration": strconv.FormatFloat(tr.Duration, 'f', -1, 64),
		}
		genre, mood := "", ""
		if tr.Genre != nil {
			values["genre"] = strconv.FormatInt(*tr.Genre, 10)
			genre = lookup(names.genres, *tr.Genre)
		}
		if tr.Mood != nil {
			values["mood"] = strconv.FormatInt(*tr.Mood, 10)
			mood = lookup(names.moods, *tr.Mood)
		}
		t.Rows = append(t.Rows, Row{
			ID:    tr.ID,
			Label: tr.Title,
			Cells: []string{
				id(tr.ID),
				tr.Title,
				lookup(names.artists, tr.Artist),
				genre,
				mood,
				strconv.Itoa(tr.BPM),
				clock(tr.Duration),
			},
			Values: values,
		})
	}
	return t
}

func analysesTable(analyses []api.Analysis) Table {
	t := Table{Tab: TabAnalyses, Columns: []string{"ID", "Track", "Analyzed", "Details"}}
	for _, a := range analyses {
		details := string(a.Details)
		values := Values{"track": strconv.FormatInt(a.Track, 10)}
		if details != "" && details != "null" {
			values["details"] = details
		} else {
			details = ""
		}
		t.Rows = append(t.Rows, Row{
			ID:     a.ID,
			Label:  "track " + id(a.Track),
			Cells:  []string{id(a.ID), id(a.Track), ago(a.AnalyzedAt), truncate(details, 40)},
			Values: values,
		})
	}
	return t
}

func lookup(names map[int64]string, key int64) string {
	if name, ok := names[key]; ok && name != "" {
		return name
	}
	return "#" + id(key)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func ago(raw string) string {
	ts := api.ParseTime(raw)
	if ts.IsZero() {
		return raw
	}
	return humanize.Time(ts)
}

func clock(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
