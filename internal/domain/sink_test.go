package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/phpguard/internal/model"
)

func TestMemorySink_KeepsFileGroupsTogether(t *testing.T) {
	sink := NewMemorySink()

	const files = 16
	const perFile = 5

	var wg sync.WaitGroup

	for i := range files {
		wg.Add(1)

		go func() {
			defer wg.Done()

			path := m.Path(fmt.Sprintf("f%02d.php", i))
			batch := make([]m.Finding, perFile)

			for j := range batch {
				batch[j] = m.Finding{File: path, Line: j + 1}
			}

			sink.Emit(batch...)
		}()
	}

	wg.Wait()

	all := sink.Findings()
	require.Len(t, all, files*perFile)

	for i := 0; i < len(all); i += perFile {
		group := all[i : i+perFile]
		for j, f := range group {
			assert.Equal(t, group[0].File, f.File)
			assert.Equal(t, j+1, f.Line)
		}
	}
}

func TestMemorySink_FindingsIsACopy(t *testing.T) {
	sink := NewMemorySink()
	sink.Emit(m.Finding{Message: "a"})

	got := sink.Findings()
	got[0].Message = "changed"

	assert.Equal(t, "a", sink.Findings()[0].Message)
}

func TestMemorySink_ForFile(t *testing.T) {
	sink := NewMemorySink()
	sink.Emit(m.Finding{File: "a.php", Line: 1}, m.Finding{File: "a.php", Line: 2})
	sink.Emit(m.Finding{File: "b.php", Line: 1})

	assert.Len(t, sink.ForFile("a.php"), 2)
	assert.Len(t, sink.ForFile("b.php"), 1)
	assert.Empty(t, sink.ForFile("c.php"))
}

func TestSinkFunc(t *testing.T) {
	var got []m.Finding

	var s Sink = SinkFunc(func(findings ...m.Finding) { got = append(got, findings...) })
	s.Emit(m.Finding{Code: CodeNoExit}, m.Finding{Code: CodeMissingGuard})

	assert.Len(t, got, 2)
}
