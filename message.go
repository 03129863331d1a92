package main

import (
	"encoding/json"
)

// Message types understood by the router. Any other type is ignored so that
// older hubs tolerate newer clients.
const (
	typeEdit        = "edit"
	typeImageUpload = "image_upload"
)

// inbound holds the top-level members of a text frame by their exact key.
// Payload values stay raw; the hub never looks inside them.
type inbound map[string]json.RawMessage

// kind returns the value of the "type" key, or "" when it is absent or null.
func (in inbound) kind() (string, error) {
	raw, ok := in["type"]
	if !ok {
		return "", nil
	}
	var t string
	if err := json.Unmarshal(raw, &t); err != nil {
		return "", err
	}
	return t, nil
}

type editMessage struct {
	Type     string          `json:"type"`
	ImageID  json.RawMessage `json:"image_id"`
	Data     json.RawMessage `json:"data"`
	EditorID int             `json:"editor_id"`
}

type imageUploadMessage struct {
	Type      string          `json:"type"`
	Filename  json.RawMessage `json:"filename"`
	ImageData json.RawMessage `json:"image_data"`
	SenderID  int             `json:"sender_id"`
}
