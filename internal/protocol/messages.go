package protocol

// Tag identifies one of the ~100 wire message variants the real device
// catalogue carries. This module implements the subset exercised by the
// supported Commands and the signing dialogue, plus Raw for anything else.
type Tag uint16

// Message tags. Numeric values are arbitrary but stable within this module;
// a real deployment pins these to the device firmware's protocol buffer
// field numbers.
const (
	TagInitialize        Tag = 0
	TagGetFeatures        Tag = 55
	TagFeatures           Tag = 17
	TagFailure            Tag = 3
	TagButtonRequest      Tag = 26
	TagButtonAck          Tag = 27
	TagPinMatrixRequest   Tag = 18
	TagPinMatrixAck       Tag = 19
	TagPassphraseRequest  Tag = 41
	TagPassphraseAck      Tag = 42
	TagCancel             Tag = 20
	TagSuccess            Tag = 2
	TagGetAddress         Tag = 29
	TagAddress            Tag = 30
	TagSignTx             Tag = 15
	TagTxRequest          Tag = 21
	TagTxAck              Tag = 22
	TagFirmwareErase      Tag = 6
	TagFirmwareUpload     Tag = 7
	TagRaw                Tag = 0xFFFF
)

// FailureCode classifies a device Failure reply.
type FailureCode int

const (
	FailureOther FailureCode = iota
	FailureUnknownMessage
	FailureButtonExpected
	FailurePinInvalid
	FailureActionCancelled
	FailureSyntaxError
	FailureNotInitialized
	FailureFirmwareError
)

func (c FailureCode) String() string {
	switch c {
	case FailureOther:
		return "failure_other"
	case FailureUnknownMessage:
		return "failure_unknown_message"
	case FailureButtonExpected:
		return "failure_button_expected"
	case FailurePinInvalid:
		return "failure_pin_invalid"
	case FailureActionCancelled:
		return "failure_action_cancelled"
	case FailureSyntaxError:
		return "failure_syntax_error"
	case FailureNotInitialized:
		return "failure_not_initialized"
	case FailureFirmwareError:
		return "failure_firmware_error"
	default:
		return "failure_unknown"
	}
}

// PinMatrixRequestKind distinguishes why the device is asking for a PIN.
type PinMatrixRequestKind int

const (
	PinCurrent PinMatrixRequestKind = iota
	PinNewFirst
	PinNewSecond
)

// TxRequestType is the discriminator the device uses to pull tx data during
// the signing dialogue.
type TxRequestType int

const (
	TxRequestInput TxRequestType = iota
	TxRequestOutput
	TxRequestMeta
	TxRequestExtraData
	TxRequestFinished
)

// Message is the tagged-sum interface every variant implements.
type Message interface {
	MessageTag() Tag
}

type Initialize struct{}

func (Initialize) MessageTag() Tag { return TagInitialize }

type GetFeatures struct{}

func (GetFeatures) MessageTag() Tag { return TagGetFeatures }

type Features struct {
	Label          string
	Version        string
	BootloaderMode bool
	VendorID       uint16
	ProductID      uint16
}

func (Features) MessageTag() Tag { return TagFeatures }

type Failure struct {
	Code    FailureCode
	Message string
}

func (Failure) MessageTag() Tag { return TagFailure }

type ButtonRequest struct {
	Code string
}

func (ButtonRequest) MessageTag() Tag { return TagButtonRequest }

type ButtonAck struct{}

func (ButtonAck) MessageTag() Tag { return TagButtonAck }

type PinMatrixRequest struct {
	Kind PinMatrixRequestKind
}

func (PinMatrixRequest) MessageTag() Tag { return TagPinMatrixRequest }

type PinMatrixAck struct {
	EncodedPIN string
}

func (PinMatrixAck) MessageTag() Tag { return TagPinMatrixAck }

type PassphraseRequest struct{}

func (PassphraseRequest) MessageTag() Tag { return TagPassphraseRequest }

type PassphraseAck struct {
	Text string
}

func (PassphraseAck) MessageTag() Tag { return TagPassphraseAck }

type Cancel struct{}

func (Cancel) MessageTag() Tag { return TagCancel }

type Success struct {
	Message string
}

func (Success) MessageTag() Tag { return TagSuccess }

type GetAddress struct {
	AddressNList []uint32
	CoinName     string
	ScriptType   string // empty means device default
	ShowDisplay  bool
}

func (GetAddress) MessageTag() Tag { return TagGetAddress }

type Address struct {
	Address string
}

func (Address) MessageTag() Tag { return TagAddress }

type SignTx struct {
	CoinName     string
	InputsCount  uint32
	OutputsCount uint32
	Version      uint32
	LockTime     uint32
}

func (SignTx) MessageTag() Tag { return TagSignTx }

// TxRequestDetails carries the device's pull-request addressing.
type TxRequestDetails struct {
	RequestIndex     int32  // -1 means absent
	TxHash           string // empty means "unsigned"
	ExtraDataLen     uint32
	ExtraDataOffset  uint32
}

// TxRequestSerialized carries the device's piecewise signing output.
type TxRequestSerialized struct {
	HasSignature    bool
	SignatureIndex  uint32
	Signature       []byte
	HasSerializedTx bool
	SerializedTx    []byte
}

type TxRequest struct {
	RequestType TxRequestType
	Details     TxRequestDetails
	Serialized  TxRequestSerialized
}

func (TxRequest) MessageTag() Tag { return TagTxRequest }

// TxAck answers one TxRequest with exactly the slice the device asked for.
type TxAck struct {
	Inputs     []TxInput
	Outputs    []TxOutput
	BinOutputs []TxOutputBin
	Meta       *TxMeta
	ExtraData  []byte
}

func (TxAck) MessageTag() Tag { return TagTxAck }

// TxInput mirrors a Bitcoin transaction input the device needs to verify.
type TxInput struct {
	PrevHash  []byte
	PrevIndex uint32
	ScriptSig []byte
	Sequence  uint32
	AddressN  []uint32
}

// TxOutput is an unsigned-transaction output: address + amount, which the
// device shows the user to confirm.
type TxOutput struct {
	Address    string
	Amount     uint64
	ScriptType string
}

// TxOutputBin is a previous-transaction output: pre-serialized script and
// amount, used only to verify inputs being spent, never shown to the user.
type TxOutputBin struct {
	Amount      uint64
	ScriptPubKey []byte
}

// TxMeta is the skeleton reply to a TxMeta request: never carries inputs or
// outputs, only counts and chain fields.
type TxMeta struct {
	Version       uint32
	LockTime      uint32
	InputsCount   uint32
	OutputsCount  uint32
	ExtraDataLen  uint32
}

type FirmwareErase struct{}

func (FirmwareErase) MessageTag() Tag { return TagFirmwareErase }

type FirmwareUpload struct {
	Payload     []byte
	PayloadHash []byte
}

func (FirmwareUpload) MessageTag() Tag { return TagFirmwareUpload }

// Raw is the escape hatch for any tag the codec has no typed variant for,
// and is what SendRaw Commands pass through verbatim.
type Raw struct {
	Tag     Tag
	Payload []byte
}

func (r Raw) MessageTag() Tag { return r.Tag }
