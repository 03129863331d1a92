package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

var errMalformedFrame = errors.New("malformed frame")

// frame is one outbound websocket message.
type frame struct {
	kind    int
	payload []byte
}

// route turns an inbound frame from sender into the frame to fan out.
// It returns ok=false when there is nothing to broadcast; err is set only
// for frames that could not be decoded.
func route(senderID int, kind int, payload []byte) (out frame, ok bool, err error) {
	switch kind {
	case websocket.BinaryMessage:
		return frame{kind: websocket.BinaryMessage, payload: payload}, true, nil
	case websocket.TextMessage:
		text, relay, err := routeText(senderID, payload)
		if !relay || err != nil {
			return frame{}, false, err
		}
		return frame{kind: websocket.TextMessage, payload: text}, true, nil
	}
	return frame{}, false, nil
}

func routeText(senderID int, payload []byte) ([]byte, bool, error) {
	// Peers fail the connection on invalid text, so it is never relayed.
	if !utf8.Valid(payload) {
		return nil, false, fmt.Errorf("%w: invalid UTF-8", errMalformedFrame)
	}
	// Keys match exactly; encoding/json would fold case on a struct.
	var in inbound
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, false, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}
	kind, err := in.kind()
	if err != nil {
		return nil, false, fmt.Errorf("%w: type: %v", errMalformedFrame, err)
	}

	var msg any
	switch kind {
	case typeEdit:
		msg = editMessage{
			Type:     typeEdit,
			ImageID:  in["image_id"],
			Data:     in["data"],
			EditorID: senderID,
		}
	case typeImageUpload:
		filename, ok := in["filename"]
		if !ok {
			filename, _ = json.Marshal(defaultFilename(senderID))
		}
		msg = imageUploadMessage{
			Type:      typeImageUpload,
			Filename:  filename,
			ImageData: in["image_data"],
			SenderID:  senderID,
		}
	default:
		return nil, false, nil
	}

	out, err := json.Marshal(msg)
	if err != nil {
		return nil, false, fmt.Errorf("encode %s: %w", kind, err)
	}
	return out, true, nil
}

func defaultFilename(senderID int) string {
	return fmt.Sprintf("Image_%d.png", senderID)
}
