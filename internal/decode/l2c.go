package decode

import (
	"github.com/banshee-data/gnss-track/internal/gnss"
	"github.com/banshee-data/gnss-track/internal/monitoring"
)

// navMsgWordBits is the CNAV word size the decoder accumulates before
// handing off to the navigation message parser.
const navMsgWordBits = 32

// maxBitsPerProcess bounds the work done in one decode pass.
const maxBitsPerProcess = 64

// l2cData accumulates nav bits for one L2C decoder channel. The bit-level
// message parsing lives in the navigation data layer; this decoder only
// frames whole words out of the tracked bit stream.
type l2cData struct {
	word     uint32
	bitCount int
	words    uint64
}

// L2CDecoder is the GPS L2C navigation-data decoder type.
type L2CDecoder struct{}

// NewL2CDecoder returns the L2C decoder type.
func NewL2CDecoder() *L2CDecoder { return &L2CDecoder{} }

// Code returns the signal type this decoder serves.
func (d *L2CDecoder) Code() gnss.Code { return gnss.CodeGPSL2CM }

// Init prepares a freshly claimed decoder channel.
func (d *L2CDecoder) Init(ch *Channel) {
	ch.Data = &l2cData{}
}

// Disable releases a decoder channel.
func (d *L2CDecoder) Disable(ch *Channel) {
	ch.Data = nil
}

// Process drains pending nav bits from the paired tracking channel and
// frames them into words.
func (d *L2CDecoder) Process(ch *Channel) {
	data := ch.Data.(*l2cData)
	if ch.Bits == nil {
		return
	}
	for i := 0; i < maxBitsPerProcess; i++ {
		bit, ok := ch.Bits.NextBit()
		if !ok {
			return
		}
		data.word <<= 1
		if bit {
			data.word |= 1
		}
		data.bitCount++
		if data.bitCount == navMsgWordBits {
			data.words++
			monitoring.Logf("%s: nav word %d: %08x", ch.Signal, data.words, data.word)
			data.word = 0
			data.bitCount = 0
		}
	}
}
