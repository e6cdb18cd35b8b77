// Package memo classifies transfer memos into settlement intents. The memo
// is the only routing channel available on incoming payments, so each game
// interaction encodes its intent as a fixed prefix followed by positional
// fields.
package memo

import (
	"strconv"
	"strings"
)

// Kind identifies the settlement path a deposit should take.
type Kind int

const (
	// KindDirect is any memo without a recognized prefix. Treated as a
	// direct jackpot contribution.
	KindDirect Kind = iota
	KindCheckFee
	KindUnlockFee
	KindWrongCode
	KindSponsorActivation
	KindRaceCreation
	KindRaceEntry
	KindBuyCheckpoint
	KindBuyTokens
	KindChestFunding
	KindMintCheckpoint
)

func (k Kind) String() string {
	switch k {
	case KindCheckFee:
		return "check_fee"
	case KindUnlockFee:
		return "unlock_fee"
	case KindWrongCode:
		return "wrong_code"
	case KindSponsorActivation:
		return "sponsor_activation"
	case KindRaceCreation:
		return "race_creation"
	case KindRaceEntry:
		return "race_entry"
	case KindBuyCheckpoint:
		return "buy_checkpoint"
	case KindBuyTokens:
		return "buy_tokens"
	case KindChestFunding:
		return "chest_funding"
	case KindMintCheckpoint:
		return "mint_checkpoint"
	}
	return "direct"
}

// MintFields are the positional fields of a checkpoint mint memo.
type MintFields struct {
	ClientRef   string
	Title       string
	ImageURL    string
	VideoURL    string
	Latitude    float64
	Longitude   float64
	Description string
}

// Intent is the parsed routing decision for one deposit memo.
type Intent struct {
	Kind     Kind
	Key      uint64 // referenced record key, when the memo names one
	Quantity uint64 // promised whole-token quantity for token purchases
	Title    string // race title for race creation
	Mint     MintFields
}

// Prefixes recognized on incoming transfers. Matching is exact and
// case-sensitive; the payload starts immediately after the prefix.
const (
	prefixCheckFee   = "Check Treasure No."
	prefixUnlockFee  = "Unlock Treasure No."
	prefixWrongCode  = "Wrong code payment on treasure No."
	prefixSponsor    = "Activate SponsorItem No."
	prefixRaceCreate = "AddAdventureRace:"
	prefixRaceEntry  = "RacePayment:"
	prefixBuy        = "Buy Treasure No."
	prefixBuyTokens  = "BuyBLKBILLTokens:"
	prefixChestFund  = "RandomChestFunding:"
	prefixMint       = "MintCheckpoint:"
)

// Classify parses a memo into its settlement intent. Unparseable numeric
// fields degrade to zero; downstream validation rejects the resulting
// intent rather than the parse failing here.
func Classify(m string) Intent {
	switch {
	case strings.HasPrefix(m, prefixCheckFee):
		return Intent{Kind: KindCheckFee, Key: parseKey(m[len(prefixCheckFee):])}
	case strings.HasPrefix(m, prefixUnlockFee):
		return Intent{Kind: KindUnlockFee, Key: parseKey(m[len(prefixUnlockFee):])}
	case strings.HasPrefix(m, prefixWrongCode):
		return Intent{Kind: KindWrongCode, Key: parseKey(m[len(prefixWrongCode):])}
	case strings.HasPrefix(m, prefixSponsor):
		return Intent{Kind: KindSponsorActivation, Key: parseKey(m[len(prefixSponsor):])}
	case strings.HasPrefix(m, prefixRaceCreate):
		return Intent{Kind: KindRaceCreation, Title: strings.TrimSpace(m[len(prefixRaceCreate):])}
	case strings.HasPrefix(m, prefixRaceEntry):
		return Intent{Kind: KindRaceEntry, Key: parseKey(m[len(prefixRaceEntry):])}
	case strings.HasPrefix(m, prefixBuy):
		return Intent{Kind: KindBuyCheckpoint, Key: parseKey(m[len(prefixBuy):])}
	case strings.HasPrefix(m, prefixBuyTokens):
		return Intent{Kind: KindBuyTokens, Quantity: parseKey(m[len(prefixBuyTokens):])}
	case strings.HasPrefix(m, prefixChestFund):
		return Intent{Kind: KindChestFunding}
	case strings.HasPrefix(m, prefixMint):
		return Intent{Kind: KindMintCheckpoint, Mint: parseMintFields(m[len(prefixMint):])}
	}
	return Intent{Kind: KindDirect}
}

func parseKey(s string) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseMintFields splits the mint payload on semicolons. The layout is
// ref;title;imageurl;videourl;lat;lon;description;
func parseMintFields(s string) MintFields {
	parts := strings.Split(s, ";")
	var f MintFields
	get := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	f.ClientRef = get(0)
	f.Title = get(1)
	f.ImageURL = get(2)
	f.VideoURL = get(3)
	f.Latitude = parseFloat(get(4))
	f.Longitude = parseFloat(get(5))
	f.Description = get(6)
	return f
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
