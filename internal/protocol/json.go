package protocol

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire form of one command or action: a tag plus payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command tags. Stable wire identifiers; never renumber or reuse.
const (
	tagCreateOrUpdateCard    = "create_or_update_card"
	tagMoveGameObjects       = "move_game_objects"
	tagFireProjectile        = "fire_projectile"
	tagPlayEffect            = "play_effect"
	tagPlaySound             = "play_sound"
	tagSetMusic              = "set_music"
	tagRenderInterface       = "render_interface"
	tagDisplayGameMessage    = "display_game_message"
	tagDelay                 = "delay"
	tagRunInParallel         = "run_in_parallel"
	tagDebugLog              = "debug_log"
	tagRenderGame            = "render_game"
	tagInitiateRaid          = "initiate_raid"
	tagEndRaid               = "end_raid"
	tagLevelUpRoom           = "level_up_room"
	tagSetGameObjectsEnabled = "set_game_objects_enabled"
	tagDisplayRewards        = "display_rewards"
	tagUpdatePlayerState     = "update_player_state"
)

func marshalCommand(cmd Command) (envelope, error) {
	var tag string
	switch cmd.(type) {
	case CreateOrUpdateCard:
		tag = tagCreateOrUpdateCard
	case MoveGameObjects:
		tag = tagMoveGameObjects
	case FireProjectile:
		tag = tagFireProjectile
	case PlayEffect:
		tag = tagPlayEffect
	case PlaySound:
		tag = tagPlaySound
	case SetMusic:
		tag = tagSetMusic
	case RenderInterface:
		tag = tagRenderInterface
	case DisplayGameMessage:
		tag = tagDisplayGameMessage
	case Delay:
		tag = tagDelay
	case RunInParallel:
		tag = tagRunInParallel
	case DebugLog:
		tag = tagDebugLog
	case RenderGame:
		tag = tagRenderGame
	case InitiateRaid:
		tag = tagInitiateRaid
	case EndRaid:
		tag = tagEndRaid
	case LevelUpRoom:
		tag = tagLevelUpRoom
	case SetGameObjectsEnabled:
		tag = tagSetGameObjectsEnabled
	case DisplayRewards:
		tag = tagDisplayRewards
	case UpdatePlayerState:
		tag = tagUpdatePlayerState
	case UnknownCommand:
		unknown := cmd.(UnknownCommand)
		return envelope{Type: unknown.Tag, Payload: unknown.Payload}, nil
	default:
		return envelope{}, fmt.Errorf("unhandled command type %T", cmd)
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal %s payload: %w", tag, err)
	}
	return envelope{Type: tag, Payload: payload}, nil
}

func unmarshalCommand(env envelope) (Command, error) {
	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	decode := func(target Command) (Command, error) {
		// target must be a pointer; the concrete value is returned.
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return target, nil
	}
	var cmd Command
	var err error
	switch env.Type {
	case tagCreateOrUpdateCard:
		cmd, err = decode(&CreateOrUpdateCard{})
	case tagMoveGameObjects:
		cmd, err = decode(&MoveGameObjects{})
	case tagFireProjectile:
		cmd, err = decode(&FireProjectile{})
	case tagPlayEffect:
		cmd, err = decode(&PlayEffect{})
	case tagPlaySound:
		cmd, err = decode(&PlaySound{})
	case tagSetMusic:
		cmd, err = decode(&SetMusic{})
	case tagRenderInterface:
		cmd, err = decode(&RenderInterface{})
	case tagDisplayGameMessage:
		cmd, err = decode(&DisplayGameMessage{})
	case tagDelay:
		cmd, err = decode(&Delay{})
	case tagRunInParallel:
		cmd, err = decode(&RunInParallel{})
	case tagDebugLog:
		cmd, err = decode(&DebugLog{})
	case tagRenderGame:
		cmd, err = decode(&RenderGame{})
	case tagInitiateRaid:
		cmd, err = decode(&InitiateRaid{})
	case tagEndRaid:
		cmd, err = decode(&EndRaid{})
	case tagLevelUpRoom:
		cmd, err = decode(&LevelUpRoom{})
	case tagSetGameObjectsEnabled:
		cmd, err = decode(&SetGameObjectsEnabled{})
	case tagDisplayRewards:
		cmd, err = decode(&DisplayRewards{})
	case tagUpdatePlayerState:
		cmd, err = decode(&UpdatePlayerState{})
	default:
		// Unknown tags survive decoding so the queue can log and skip them.
		return UnknownCommand{Tag: env.Type, Payload: env.Payload}, nil
	}
	if err != nil {
		return nil, err
	}
	return derefCommand(cmd), nil
}

// derefCommand converts the pointer used for decoding back to a value so
// type switches over variants stay uniform.
func derefCommand(cmd Command) Command {
	switch v := cmd.(type) {
	case *CreateOrUpdateCard:
		return *v
	case *MoveGameObjects:
		return *v
	case *FireProjectile:
		return *v
	case *PlayEffect:
		return *v
	case *PlaySound:
		return *v
	case *SetMusic:
		return *v
	case *RenderInterface:
		return *v
	case *DisplayGameMessage:
		return *v
	case *Delay:
		return *v
	case *RunInParallel:
		return *v
	case *DebugLog:
		return *v
	case *RenderGame:
		return *v
	case *InitiateRaid:
		return *v
	case *EndRaid:
		return *v
	case *LevelUpRoom:
		return *v
	case *SetGameObjectsEnabled:
		return *v
	case *DisplayRewards:
		return *v
	case *UpdatePlayerState:
		return *v
	default:
		return cmd
	}
}

// MarshalJSON encodes the batch as a list of tagged envelopes.
func (b CommandBatch) MarshalJSON() ([]byte, error) {
	envelopes := make([]envelope, 0, len(b.Commands))
	for _, cmd := range b.Commands {
		env, err := marshalCommand(cmd)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
	}
	return json.Marshal(struct {
		Commands []envelope `json:"commands"`
	}{Commands: envelopes})
}

// UnmarshalJSON decodes a list of tagged envelopes. Unknown tags decode to
// UnknownCommand rather than failing the batch.
func (b *CommandBatch) UnmarshalJSON(data []byte) error {
	var wire struct {
		Commands []envelope `json:"commands"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode command batch: %w", err)
	}
	commands := make([]Command, 0, len(wire.Commands))
	for _, env := range wire.Commands {
		cmd, err := unmarshalCommand(env)
		if err != nil {
			return err
		}
		commands = append(commands, cmd)
	}
	b.Commands = commands
	return nil
}

// MarshalAction encodes a game action as a tagged envelope. The pre-approved
// update batch of a StandardAction is client-local and never crosses the
// wire.
func MarshalAction(action GameAction) ([]byte, error) {
	kind := KindOf(action)
	if kind == "" {
		return nil, fmt.Errorf("unhandled action type %T", action)
	}
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return json.Marshal(envelope{Type: string(kind), Payload: payload})
}

// UnmarshalAction decodes a tagged action envelope. Unlike commands, unknown
// action tags are an error: actions originate from this client's own builds.
func UnmarshalAction(data []byte) (GameAction, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action envelope: %w", err)
	}
	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	switch ActionKind(env.Type) {
	case KindStandardAction:
		var action StandardAction
		if err := json.Unmarshal(payload, &action); err != nil {
			return nil, err
		}
		return action, nil
	case KindDrawCard:
		return DrawCard{}, nil
	case KindPlayCard:
		var action PlayCard
		if err := json.Unmarshal(payload, &action); err != nil {
			return nil, err
		}
		return action, nil
	case KindGainMana:
		return GainMana{}, nil
	case KindLevelUpRoom:
		var action LevelUpRoomAction
		if err := json.Unmarshal(payload, &action); err != nil {
			return nil, err
		}
		return action, nil
	case KindInitiateRaid:
		var action InitiateRaidAction
		if err := json.Unmarshal(payload, &action); err != nil {
			return nil, err
		}
		return action, nil
	case KindFetchPanel:
		var action FetchPanel
		if err := json.Unmarshal(payload, &action); err != nil {
			return nil, err
		}
		return action, nil
	case KindCreateNewGame:
		var action CreateNewGame
		if err := json.Unmarshal(payload, &action); err != nil {
			return nil, err
		}
		return action, nil
	case KindSyncAction:
		return SyncAction{}, nil
	default:
		return nil, fmt.Errorf("unknown action tag %q", env.Type)
	}
}
