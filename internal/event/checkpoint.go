// internal/event/checkpoint.go
package event

import "DiamondLedger/internal/money"

// RegisterCheckpoint creates a checkpoint row directly, without the
// mint fee path. Operator only.
type RegisterCheckpoint struct {
	Op
	CheckpointKey uint64
	Owner         string
	Title         string
	Description   string
	ImageURL      string
	VideoURL      string
	Latitude      float64
	Longitude     float64
}

func (e *RegisterCheckpoint) EventType() EventType { return EventTypeRegisterCheckpoint }

// ModifyCheckpoint updates the descriptive fields of a checkpoint.
type ModifyCheckpoint struct {
	Op
	CheckpointKey uint64
	Title         string
	Description   string
	ImageURL      string
	VideoURL      string
}

func (e *ModifyCheckpoint) EventType() EventType { return EventTypeModifyCheckpoint }

type ModifyCheckpointImage struct {
	Op
	CheckpointKey uint64
	ImageURL      string
}

func (e *ModifyCheckpointImage) EventType() EventType { return EventTypeModifyCheckpointImage }

type ModifyCheckpointGPS struct {
	Op
	CheckpointKey uint64
	Latitude      float64
	Longitude     float64
}

func (e *ModifyCheckpointGPS) EventType() EventType { return EventTypeModifyCheckpointGPS }

type SetCheckpointJSON struct {
	Op
	CheckpointKey uint64
	JSONData      string
}

func (e *SetCheckpointJSON) EventType() EventType { return EventTypeSetCheckpointJSON }

type SetSecretCode struct {
	Op
	CheckpointKey uint64
	SecretCode    string
}

func (e *SetSecretCode) EventType() EventType { return EventTypeSetSecretCode }

// ActivateCheckpoint arms a registered checkpoint with its secret code
// and puts it into play.
type ActivateCheckpoint struct {
	Op
	CheckpointKey uint64
	SecretCode    string
}

func (e *ActivateCheckpoint) EventType() EventType { return EventTypeActivateCheckpoint }

type ResetSecretCode struct {
	Op
	CheckpointKey uint64
	SecretCode    string
}

func (e *ResetSecretCode) EventType() EventType { return EventTypeResetSecretCode }

type SetRankingPoints struct {
	Op
	CheckpointKey uint64
	Points        uint64
}

func (e *SetRankingPoints) EventType() EventType { return EventTypeSetRankingPoints }

type RenewCheckpointExpiry struct {
	Op
	CheckpointKey uint64
}

func (e *RenewCheckpointExpiry) EventType() EventType { return EventTypeRenewCheckpointExpiry }

type EraseCheckpoint struct {
	Op
	CheckpointKey uint64
}

func (e *EraseCheckpoint) EventType() EventType { return EventTypeEraseCheckpoint }

// AddSalePrice lists a checkpoint for sale at a USD asking price.
type AddSalePrice struct {
	Op
	CheckpointKey uint64
	AskingUSD     money.Asset
	SaleMemo      string
}

func (e *AddSalePrice) EventType() EventType { return EventTypeAddSalePrice }

type DeleteSalePrice struct {
	Op
	CheckpointKey uint64
}

func (e *DeleteSalePrice) EventType() EventType { return EventTypeDeleteSalePrice }
