package chunking

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split cuts text into rune-bounded chunks of at most ChunkSize, each chunk
// after the first repeating the previous chunk's last Overlap runes. The
// trailing remainder is kept even when shorter than ChunkSize. Output is a
// pure function of the input and configuration.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
