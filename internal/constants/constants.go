package constants

import "time"

// level bounds
const MinLevel = 1
const MaxLevel = 254
const DefaultLevel = MaxLevel

// transition timing
const TransitionTicksPerSecond = 20

// effect timing
const EffectTicksPerSecond = 50

const CountdownInterval = time.Second

// on-time / off-wait-time decrement per countdown tick (deciseconds)
const CountdownStep = 10

// duration sentinels meaning "as fast as possible"
const DurationImmediate = 0
const DurationUndefined = 0xFFFF

// rate sentinel meaning "use the default move rate attribute"
const MoveRateUndefined = 0xFF

// options attribute bits
const OptionExecuteIfOff = 0x01

const MaxEndpoints = 4
const AuxChannel = 4
const MaxChannels = 5

// report hub topics
const ReportTopicAttribute = "attribute"
const ReportTopicOutput = "output"
const ReportTopicEffect = "effect"
const ReportTopicState = "state"

const ReportStream = "reports"

// mqtt topic layout
const TopicCommand = "cmd"
const TopicState = "state"
const TopicNetworkEvent = "network/event"
const TopicButtonEvent = "button/event"
const TopicAux = "aux"

// feedback effects
const DeviceJoinedRepeat = 3
const LeftNetworkRepeat = 3

// identify time given to each endpoint while it is the pairing target
const PairingIdentifyTime = 180 * time.Second
