package framestore

import (
	"bytes"
	"sync"
	"testing"

	"platewatch/internal/model"
)

func TestStore_GetBeforePutIsEmpty(t *testing.T) {
	s := New()

	if _, ok := s.Get(); ok {
		t.Error("Expected empty store before the first Put")
	}
	if _, ok := s.Peek(); ok {
		t.Error("Expected Peek to report empty store")
	}
}

func TestStore_GetReturnsLastPut(t *testing.T) {
	s := New()

	put := s.Put(model.Frame{Data: []byte("frame-a")})
	got, ok := s.Get()
	if !ok {
		t.Fatal("Expected a frame after Put")
	}
	if !bytes.Equal(got.Data, []byte("frame-a")) {
		t.Errorf("Expected frame-a, got %q", got.Data)
	}
	if got.Seq != put.Seq || got.Seq != 1 {
		t.Errorf("Expected seq 1, got put=%d get=%d", put.Seq, got.Seq)
	}
	if got.Timestamp.IsZero() {
		t.Error("Expected Put to stamp the frame")
	}
}

func TestStore_GetIsNonDestructive(t *testing.T) {
	s := New()
	s.Put(model.Frame{Data: []byte("same")})

	first, _ := s.Get()
	second, ok := s.Get()
	if !ok {
		t.Fatal("Expected the frame to still be there on the second read")
	}
	if first.Seq != second.Seq {
		t.Errorf("Expected to read the same frame twice, got seq %d and %d", first.Seq, second.Seq)
	}
}

func TestStore_LatestWins(t *testing.T) {
	s := New()
	s.Put(model.Frame{Data: []byte("A")})
	s.Put(model.Frame{Data: []byte("B")})

	got, _ := s.Get()
	if string(got.Data) != "B" {
		t.Errorf("Expected the second frame to overwrite the first, got %q", got.Data)
	}

	stats := s.Stats()
	if stats.Published != 2 {
		t.Errorf("Expected 2 published, got %d", stats.Published)
	}
	if stats.Overwritten != 1 {
		t.Errorf("Expected 1 overwritten-unread frame, got %d", stats.Overwritten)
	}
	if stats.LastSeq != 2 {
		t.Errorf("Expected last seq 2, got %d", stats.LastSeq)
	}
}

func TestStore_ReadFrameNotCountedAsOverwritten(t *testing.T) {
	s := New()
	s.Put(model.Frame{Data: []byte("A")})
	s.Get()
	s.Put(model.Frame{Data: []byte("B")})

	if got := s.Stats().Overwritten; got != 0 {
		t.Errorf("Expected 0 overwritten frames, got %d", got)
	}
}

func TestStore_PeekDoesNotMarkRead(t *testing.T) {
	s := New()
	s.Put(model.Frame{Data: []byte("A")})
	s.Peek()
	s.Put(model.Frame{Data: []byte("B")})

	if got := s.Stats().Overwritten; got != 1 {
		t.Errorf("Expected Peek to leave the frame unread, overwritten = %d", got)
	}
	if got := s.Stats().Reads; got != 0 {
		t.Errorf("Expected 0 reads, got %d", got)
	}
}

func TestStore_ConcurrentWriterAndReader(t *testing.T) {
	s := New()
	const frames = 1000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < frames; i++ {
			// every frame is 64 copies of one byte so a torn read would be visible
			s.Put(model.Frame{Data: bytes.Repeat([]byte{byte(i)}, 64)})
		}
	}()

	go func() {
		defer wg.Done()
		var lastSeq uint64
		for i := 0; i < frames; i++ {
			f, ok := s.Get()
			if !ok {
				continue
			}
			if f.Seq < lastSeq {
				t.Errorf("Sequence went backwards: %d after %d", f.Seq, lastSeq)
				return
			}
			lastSeq = f.Seq
			if !bytes.Equal(f.Data, bytes.Repeat(f.Data[:1], 64)) {
				t.Errorf("Observed a partially written frame at seq %d", f.Seq)
				return
			}
		}
	}()

	wg.Wait()

	if got := s.Stats().Published; got != frames {
		t.Errorf("Expected %d published frames, got %d", frames, got)
	}
}
