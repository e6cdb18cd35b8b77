package ingestion

import (
	"DiamondLedger/internal/event"
	"DiamondLedger/internal/money"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type string) into a
// typed event.Event. The ingestion shell validates, parses, and converts raw
// events before sending to the settlement core. Operator commands share the
// "Operation" event type; the command name is the third subject token
// (diamond.ops.<command>...).
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "TransferNotice":
		return parseTransferNotice(raw.Data)
	case "TokenTransferNotice":
		return parseTokenTransferNotice(raw.Data)
	case "ExchangeRate":
		return parseExchangeRate(raw.Data)
	case "Operation":
		return parseOperation(raw)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

func parseOperation(raw RawEvent) (event.Event, error) {
	parts := strings.Split(raw.Subject, ".")
	if len(parts) < 3 {
		return nil, fmt.Errorf("operation subject %q has no command token", raw.Subject)
	}
	command := parts[2]

	switch command {
	case "register_checkpoint":
		return parseRegisterCheckpoint(raw.Data)
	case "modify_checkpoint":
		return parseModifyCheckpoint(raw.Data)
	case "modify_checkpoint_image":
		return parseModifyCheckpointImage(raw.Data)
	case "modify_checkpoint_gps":
		return parseModifyCheckpointGPS(raw.Data)
	case "set_checkpoint_json":
		return parseSetCheckpointJSON(raw.Data)
	case "set_secret_code":
		return parseSetSecretCode(raw.Data)
	case "activate_checkpoint":
		return parseActivateCheckpoint(raw.Data)
	case "reset_secret_code":
		return parseResetSecretCode(raw.Data)
	case "set_ranking_points":
		return parseSetRankingPoints(raw.Data)
	case "renew_checkpoint_expiry":
		return parseRenewCheckpointExpiry(raw.Data)
	case "erase_checkpoint":
		return parseEraseCheckpoint(raw.Data)
	case "add_sale_price":
		return parseAddSalePrice(raw.Data)
	case "delete_sale_price":
		return parseDeleteSalePrice(raw.Data)
	case "add_sponsor_item":
		return parseAddSponsorItem(raw.Data)
	case "erase_sponsor_item":
		return parseEraseSponsorItem(raw.Data)
	case "unlock_chest":
		return parseUnlockChest(raw.Data)
	case "compute_provision":
		return parseComputeProvision(raw.Data)
	case "prepare_payout":
		return parsePreparePayout(raw.Data)
	case "drain_investor_payouts":
		return parseDrainInvestorPayouts(raw.Data)
	case "drain_holder_payouts":
		return parseDrainHolderPayouts(raw.Data)
	case "monthly_award":
		return parseMonthlyAward(raw.Data)
	case "set_fund_value":
		return parseSetFundValue(raw.Data)
	case "add_owner_provision":
		return parseAddOwnerProvision(raw.Data)
	case "add_fund_history":
		return parseAddFundHistory(raw.Data)
	case "execute_chest_funding":
		return parseExecuteChestFunding(raw.Data)
	case "cancel_sell_order":
		return parseCancelSellOrder(raw.Data)
	case "set_min_interaction_price":
		return parseSetMinInteractionPrice(raw.Data)
	default:
		return nil, fmt.Errorf("unknown operation command: %s", command)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers. Monetary
// amounts arrive as integer units with four implied decimals; the
// symbol is fixed per field.

type transferNoticeJSON struct {
	TransferID string `json:"transfer_id"`
	From       string `json:"from"`
	Quantity   int64  `json:"quantity"`
	Memo       string `json:"memo"`
	Sequence   int64  `json:"sequence"`
	Timestamp  int64  `json:"timestamp"`
}

func parseTransferNotice(data []byte) (*event.TransferNotice, error) {
	var j transferNoticeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TransferNotice: %w", err)
	}
	transferID, err := uuid.Parse(j.TransferID)
	if err != nil {
		return nil, fmt.Errorf("parse transfer_id: %w", err)
	}
	return &event.TransferNotice{
		TransferID: transferID,
		From:       j.From,
		Quantity:   money.New(j.Quantity, money.EOS),
		Memo:       j.Memo,
		Sequence:   j.Sequence,
		Timestamp:  j.Timestamp,
	}, nil
}

type tokenTransferNoticeJSON struct {
	TransferID string `json:"transfer_id"`
	From       string `json:"from"`
	Quantity   int64  `json:"quantity"`
	PriceCents uint64 `json:"price_cents"`
	Sequence   int64  `json:"sequence"`
	Timestamp  int64  `json:"timestamp"`
}

func parseTokenTransferNotice(data []byte) (*event.TokenTransferNotice, error) {
	var j tokenTransferNoticeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TokenTransferNotice: %w", err)
	}
	transferID, err := uuid.Parse(j.TransferID)
	if err != nil {
		return nil, fmt.Errorf("parse transfer_id: %w", err)
	}
	return &event.TokenTransferNotice{
		TransferID: transferID,
		From:       j.From,
		Quantity:   money.New(j.Quantity, money.BLKBILL),
		PriceCents: j.PriceCents,
		Sequence:   j.Sequence,
		Timestamp:  j.Timestamp,
	}, nil
}

// opHeaderJSON is the command envelope shared by all operator events.
type opHeaderJSON struct {
	RequestID string `json:"request_id"`
	Caller    string `json:"caller"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func (h opHeaderJSON) toOp() (event.Op, error) {
	requestID, err := uuid.Parse(h.RequestID)
	if err != nil {
		return event.Op{}, fmt.Errorf("parse request_id: %w", err)
	}
	return event.Op{
		RequestID: requestID,
		Caller:    h.Caller,
		Sequence:  h.Sequence,
		Timestamp: h.Timestamp,
	}, nil
}

type exchangeRateJSON struct {
	opHeaderJSON
	Rate int64 `json:"rate"`
}

func parseExchangeRate(data []byte) (*event.SetExchangeRate, error) {
	var j exchangeRateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ExchangeRate: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.SetExchangeRate{
		Op:   op,
		Rate: money.New(j.Rate, money.USD),
	}, nil
}

type registerCheckpointJSON struct {
	opHeaderJSON
	CheckpointKey uint64  `json:"checkpoint_key"`
	Owner         string  `json:"owner"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ImageURL      string  `json:"image_url"`
	VideoURL      string  `json:"video_url"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

func parseRegisterCheckpoint(data []byte) (*event.RegisterCheckpoint, error) {
	var j registerCheckpointJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse register_checkpoint: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.RegisterCheckpoint{
		Op:            op,
		CheckpointKey: j.CheckpointKey,
		Owner:         j.Owner,
		Title:         j.Title,
		Description:   j.Description,
		ImageURL:      j.ImageURL,
		VideoURL:      j.VideoURL,
		Latitude:      j.Latitude,
		Longitude:     j.Longitude,
	}, nil
}

type modifyCheckpointJSON struct {
	opHeaderJSON
	CheckpointKey uint64 `json:"checkpoint_key"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url"`
	VideoURL      string `json:"video_url"`
}

func parseModifyCheckpoint(data []byte) (*event.ModifyCheckpoint, error) {
	var j modifyCheckpointJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse modify_checkpoint: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.ModifyCheckpoint{
		Op:            op,
		CheckpointKey: j.CheckpointKey,
		Title:         j.Title,
		Description:   j.Description,
		ImageURL:      j.ImageURL,
		VideoURL:      j.VideoURL,
	}, nil
}

type checkpointImageJSON struct {
	opHeaderJSON
	CheckpointKey uint64 `json:"checkpoint_key"`
	ImageURL      string `json:"image_url"`
}

func parseModifyCheckpointImage(data []byte) (*event.ModifyCheckpointImage, error) {
	var j checkpointImageJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse modify_checkpoint_image: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.ModifyCheckpointImage{Op: op, CheckpointKey: j.CheckpointKey, ImageURL: j.ImageURL}, nil
}

type checkpointGPSJSON struct {
	opHeaderJSON
	CheckpointKey uint64  `json:"checkpoint_key"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

func parseModifyCheckpointGPS(data []byte) (*event.ModifyCheckpointGPS, error) {
	var j checkpointGPSJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse modify_checkpoint_gps: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.ModifyCheckpointGPS{Op: op, CheckpointKey: j.CheckpointKey, Latitude: j.Latitude, Longitude: j.Longitude}, nil
}

type checkpointJSONDataJSON struct {
	opHeaderJSON
	CheckpointKey uint64 `json:"checkpoint_key"`
	JSONData      string `json:"json_data"`
}

func parseSetCheckpointJSON(data []byte) (*event.SetCheckpointJSON, error) {
	var j checkpointJSONDataJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse set_checkpoint_json: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.SetCheckpointJSON{Op: op, CheckpointKey: j.CheckpointKey, JSONData: j.JSONData}, nil
}

type secretCodeJSON struct {
	opHeaderJSON
	CheckpointKey uint64 `json:"checkpoint_key"`
	SecretCode    string `json:"secret_code"`
}

func parseSetSecretCode(data []byte) (*event.SetSecretCode, error) {
	var j secretCodeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse set_secret_code: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.SetSecretCode{Op: op, CheckpointKey: j.CheckpointKey, SecretCode: j.SecretCode}, nil
}

func parseActivateCheckpoint(data []byte) (*event.ActivateCheckpoint, error) {
	var j secretCodeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse activate_checkpoint: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.ActivateCheckpoint{Op: op, CheckpointKey: j.CheckpointKey, SecretCode: j.SecretCode}, nil
}

func parseResetSecretCode(data []byte) (*event.ResetSecretCode, error) {
	var j secretCodeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse reset_secret_code: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.ResetSecretCode{Op: op, CheckpointKey: j.CheckpointKey, SecretCode: j.SecretCode}, nil
}

type rankingPointsJSON struct {
	opHeaderJSON
	CheckpointKey uint64 `json:"checkpoint_key"`
	Points        uint64 `json:"points"`
}

func parseSetRankingPoints(data []byte) (*event.SetRankingPoints, error) {
	var j rankingPointsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse set_ranking_points: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.SetRankingPoints{Op: op, CheckpointKey: j.CheckpointKey, Points: j.Points}, nil
}

type checkpointKeyJSON struct {
	opHeaderJSON
	CheckpointKey uint64 `json:"checkpoint_key"`
}

func parseRenewCheckpointExpiry(data []byte) (*event.RenewCheckpointExpiry, error) {
	var j checkpointKeyJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse renew_checkpoint_expiry: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.RenewCheckpointExpiry{Op: op, CheckpointKey: j.CheckpointKey}, nil
}

func parseEraseCheckpoint(data []byte) (*event.EraseCheckpoint, error) {
	var j checkpointKeyJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse erase_checkpoint: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.EraseCheckpoint{Op: op, CheckpointKey: j.CheckpointKey}, nil
}

type addSalePriceJSON struct {
	opHeaderJSON
	CheckpointKey uint64 `json:"checkpoint_key"`
	AskingUSD     int64  `json:"asking_usd"`
	SaleMemo      string `json:"sale_memo"`
}

func parseAddSalePrice(data []byte) (*event.AddSalePrice, error) {
	var j addSalePriceJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse add_sale_price: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.AddSalePrice{
		Op:            op,
		CheckpointKey: j.CheckpointKey,
		AskingUSD:     money.New(j.AskingUSD, money.USD),
		SaleMemo:      j.SaleMemo,
	}, nil
}

func parseDeleteSalePrice(data []byte) (*event.DeleteSalePrice, error) {
	var j checkpointKeyJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse delete_sale_price: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.DeleteSalePrice{Op: op, CheckpointKey: j.CheckpointKey}, nil
}

type addSponsorItemJSON struct {
	opHeaderJSON
	CheckpointKey uint64 `json:"checkpoint_key"`
	Sponsor       string `json:"sponsor"`
	ImageURL      string `json:"image_url"`
	TargetURL     string `json:"target_url"`
	Description   string `json:"description"`
	PrizeUSD      int64  `json:"prize_usd"`
	AdFee         int64  `json:"ad_fee"`
}

func parseAddSponsorItem(data []byte) (*event.AddSponsorItem, error) {
	var j addSponsorItemJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse add_sponsor_item: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.AddSponsorItem{
		Op:            op,
		CheckpointKey: j.CheckpointKey,
		Sponsor:       j.Sponsor,
		ImageURL:      j.ImageURL,
		TargetURL:     j.TargetURL,
		Description:   j.Description,
		PrizeUSD:      money.New(j.PrizeUSD, money.USD),
		AdFee:         money.New(j.AdFee, money.EOS),
	}, nil
}

type sponsorItemKeyJSON struct {
	opHeaderJSON
	SponsorItemKey uint64 `json:"sponsor_item_key"`
}

func parseEraseSponsorItem(data []byte) (*event.EraseSponsorItem, error) {
	var j sponsorItemKeyJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse erase_sponsor_item: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.EraseSponsorItem{Op: op, SponsorItemKey: j.SponsorItemKey}, nil
}

type unlockChestJSON struct {
	opHeaderJSON
	CheckpointKey  uint64 `json:"checkpoint_key"`
	ByUser         string `json:"by_user"`
	Payout         int64  `json:"payout"`
	DiamondFound   bool   `json:"diamond_found"`
	SponsorItemKey uint64 `json:"sponsor_item_key"`
}

func parseUnlockChest(data []byte) (*event.UnlockChest, error) {
	var j unlockChestJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse unlock_chest: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	if j.ByUser == "" {
		return nil, fmt.Errorf("parse unlock_chest: by_user is required")
	}
	return &event.UnlockChest{
		Op:             op,
		CheckpointKey:  j.CheckpointKey,
		ByUser:         j.ByUser,
		Payout:         money.New(j.Payout, money.EOS),
		DiamondFound:   j.DiamondFound,
		SponsorItemKey: j.SponsorItemKey,
	}, nil
}

type computeProvisionJSON struct {
	opHeaderJSON
	FromKey  uint64 `json:"from_key"`
	BatchTag string `json:"batch_tag"`
}

func parseComputeProvision(data []byte) (*event.ComputeProvision, error) {
	var j computeProvisionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse compute_provision: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.ComputeProvision{Op: op, FromKey: j.FromKey, BatchTag: j.BatchTag}, nil
}

func parsePreparePayout(data []byte) (*event.PreparePayout, error) {
	var j opHeaderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse prepare_payout: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.PreparePayout{Op: op}, nil
}

func parseDrainInvestorPayouts(data []byte) (*event.DrainInvestorPayouts, error) {
	var j opHeaderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse drain_investor_payouts: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.DrainInvestorPayouts{Op: op}, nil
}

func parseDrainHolderPayouts(data []byte) (*event.DrainHolderPayouts, error) {
	var j opHeaderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse drain_holder_payouts: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.DrainHolderPayouts{Op: op}, nil
}

type monthlyAwardJSON struct {
	opHeaderJSON
	YYYYMM       uint64 `json:"yyyymm"`
	First        string `json:"first"`
	FirstPoints  uint32 `json:"first_points"`
	Second       string `json:"second"`
	SecondPoints uint32 `json:"second_points"`
	Third        string `json:"third"`
	ThirdPoints  uint32 `json:"third_points"`
}

func parseMonthlyAward(data []byte) (*event.MonthlyAward, error) {
	var j monthlyAwardJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse monthly_award: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.MonthlyAward{
		Op:           op,
		YYYYMM:       j.YYYYMM,
		First:        j.First,
		FirstPoints:  j.FirstPoints,
		Second:       j.Second,
		SecondPoints: j.SecondPoints,
		Third:        j.Third,
		ThirdPoints:  j.ThirdPoints,
	}, nil
}

type fundValueJSON struct {
	opHeaderJSON
	Value int64 `json:"value"`
}

func parseSetFundValue(data []byte) (*event.SetFundValue, error) {
	var j fundValueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse set_fund_value: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.SetFundValue{Op: op, Value: money.New(j.Value, money.EOS)}, nil
}

type ownerProvisionJSON struct {
	opHeaderJSON
	Amount int64 `json:"amount"`
}

func parseAddOwnerProvision(data []byte) (*event.AddOwnerProvision, error) {
	var j ownerProvisionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse add_owner_provision: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.AddOwnerProvision{Op: op, Amount: money.New(j.Amount, money.EOS)}, nil
}

type fundHistoryJSON struct {
	opHeaderJSON
	CheckpointKey uint64 `json:"checkpoint_key"`
	ValueEOS      int64  `json:"value_eos"`
	ValueUSD      int64  `json:"value_usd"`
	FromTimestamp int64  `json:"from_timestamp"`
	ToTimestamp   int64  `json:"to_timestamp"`
}

func parseAddFundHistory(data []byte) (*event.AddFundHistory, error) {
	var j fundHistoryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse add_fund_history: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.AddFundHistory{
		Op:            op,
		CheckpointKey: j.CheckpointKey,
		ValueEOS:      money.New(j.ValueEOS, money.EOS),
		ValueUSD:      money.New(j.ValueUSD, money.USD),
		FromTimestamp: j.FromTimestamp,
		ToTimestamp:   j.ToTimestamp,
	}, nil
}

type chestFundingJSON struct {
	opHeaderJSON
	FundingKey uint64 `json:"funding_key"`
}

func parseExecuteChestFunding(data []byte) (*event.ExecuteChestFunding, error) {
	var j chestFundingJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse execute_chest_funding: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.ExecuteChestFunding{Op: op, FundingKey: j.FundingKey}, nil
}

type cancelSellOrderJSON struct {
	opHeaderJSON
	OrderKey uint64 `json:"order_key"`
}

func parseCancelSellOrder(data []byte) (*event.CancelSellOrder, error) {
	var j cancelSellOrderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse cancel_sell_order: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.CancelSellOrder{Op: op, OrderKey: j.OrderKey}, nil
}

type minInteractionPriceJSON struct {
	opHeaderJSON
	MinUSD int64 `json:"min_usd"`
}

func parseSetMinInteractionPrice(data []byte) (*event.SetMinInteractionPrice, error) {
	var j minInteractionPriceJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse set_min_interaction_price: %w", err)
	}
	op, err := j.toOp()
	if err != nil {
		return nil, err
	}
	return &event.SetMinInteractionPrice{Op: op, MinUSD: money.New(j.MinUSD, money.USD)}, nil
}
