package snapshot

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// Кодеки создаются один раз и безопасны для конкурентного использования.
var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	// Детерминированное кодирование: одинаковое состояние дает одинаковый дайджест
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("snapshot: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("snapshot: zstd decoder initialization failed: " + err.Error())
	}
}

// Digest BLAKE3-хеш несжатого представления состояния
type Digest [32]byte

func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:8])
}

// encodeState кодирует состояние и возвращает сжатые данные, дайджест и исходный размер
func encodeState(state *State) ([]byte, Digest, int, error) {
	raw, err := encMode.Marshal(state)
	if err != nil {
		return nil, Digest{}, 0, fmt.Errorf("кодирование снимка: %w", err)
	}
	digest := Digest(blake3.Sum256(raw))
	return zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), digest, len(raw), nil
}

func decodeState(payload []byte, size int) (*State, error) {
	raw, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("распаковка снимка: %w", err)
	}
	var state State
	if err := decMode.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("декодирование снимка: %w", err)
	}
	return &state, nil
}

// Sum считает BLAKE3-дайджест произвольных данных
func Sum(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}
