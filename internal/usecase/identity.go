package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/phenrril/vitrina/internal/persist"
)

const IdentityKey = "vitrina_device_id"

// Fingerprint son los datos del dispositivo que alimentan el hash.
type Fingerprint struct {
	UserAgent    string
	ScreenWidth  int
	ScreenHeight int
}

// IdentityUC entrega un identificador de dispositivo estable. Se genera una
// vez y después sólo se lee (y re-replica) desde las capas.
type IdentityUC struct {
	Store *persist.Store[string]
	Now   func() time.Time
	Rand  func() float64
}

func NewIdentityStore(layers []persist.Layer) *persist.Store[string] {
	return persist.NewStore[string](IdentityKey, persist.RawCodec{}, layers)
}

func (uc *IdentityUC) Identity(ctx context.Context, fp Fingerprint) string {
	if id, ok := uc.Store.Load(ctx); ok {
		return id
	}
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}
	rnd := rand.Float64
	if uc.Rand != nil {
		rnd = uc.Rand
	}
	seed := fmt.Sprintf("%d-%v-%s-%dx%d", now().UnixMilli(), rnd(), fp.UserAgent, fp.ScreenWidth, fp.ScreenHeight)
	id := strconv.FormatInt(int64(abs32(SeedFromString(seed))), 36)
	uc.Store.Save(ctx, id)
	return id
}

// SeedFromString es un hash no criptográfico de 32 bits, sensible al orden:
// h = h*31 + c con desborde de int32 por cada runa. Sirve para ids de
// dispositivo y para valores pseudoaleatorios deterministas por id.
func SeedFromString(s string) int32 {
	var h int32
	for _, c := range s {
		h = (h << 5) - h + int32(c)
	}
	return h
}

func abs32(v int32) uint32 {
	if v < 0 {
		return uint32(-int64(v))
	}
	return uint32(v)
}
