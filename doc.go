// Command imagehub relays image edits between desktop editor clients over
// websockets.
//
//     imagehub -addr=:8000
//
// Everything is as ephemeral as can be. A frame is sent to the other
// connected clients (if any) and then forgotten. Nothing survives a
// restart.
//
// Connect by opening a websocket to the hub path.
//     ws://localhost:8000/ws/image
//
// Text frames are JSON records with a "type" field. Two types are relayed:
//     {"type":"edit","image_id":"42","data":...}
//     {"type":"image_upload","filename":"cat.png","image_data":"<base64>"}
// Recipients see the sender's connection id added as "editor_id" or
// "sender_id". An upload without a filename is named Image_<sender_id>.png.
// Frames that are not JSON, and types the hub does not know, are dropped.
//
// Binary frames are relayed unchanged.
//
// Frames are never echoed back to their sender.
//
// Non-websocket GET requests to the hub path are served HTML with a
// websocket client. Metrics are served as JSON at /debug/metrics.
package main
