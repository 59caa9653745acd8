package httpapi

import (
	"encoding/xml"
	"fmt"
)

// Spoken prompts played before the media bridge exists. The caller hears
// these regardless of backend health.
const (
	greetingPrompt = "Please wait while we connect your call to the A. I. voice assistant, powered by Twilio and the Open-A.I. Realtime API"
	talkPrompt     = "O.K. you can start talking!"
)

// TwiML elements for the call-control document.

type voiceResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Greeting sayElement
	Pause    pauseElement
	Prompt   sayElement
	Connect  connectElement
}

type sayElement struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type pauseElement struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type connectElement struct {
	XMLName xml.Name `xml:"Connect"`
	Stream  streamElement
}

type streamElement struct {
	XMLName xml.Name `xml:"Stream"`
	URL     string   `xml:"url,attr"`
}

// agentTwiML builds the call-control document: two spoken prompts, then a
// bidirectional media stream back to this host.
func agentTwiML(host string) string {
	response := voiceResponse{
		Greeting: sayElement{Text: greetingPrompt},
		Pause:    pauseElement{Length: 1},
		Prompt:   sayElement{Text: talkPrompt},
		Connect: connectElement{
			Stream: streamElement{URL: fmt.Sprintf("wss://%s%s", host, mediaStreamPath)},
		},
	}

	xmlBytes, err := xml.MarshalIndent(response, "", "    ")
	if err != nil {
		return fmt.Sprintf(`<Response><Connect><Stream url="wss://%s%s"/></Connect></Response>`, host, mediaStreamPath)
	}
	return xml.Header + string(xmlBytes)
}
