// Package transcribe turns the audio challenge into text.
//
// Service.Transcribe runs three stages against a pair of temp files:
//
//	download  remote MP3  -> <dir>/<n>.mp3   (Downloader)
//	transcode <n>.mp3     -> <dir>/<m>.wav   (Transcoder)
//	recognize <m>.wav     -> text            (Recognizer)
//
// Both temp files are removed on every exit path. The recognizer result is
// best effort: an empty transcript is not an error, and nothing checks that
// the text is the right answer before it is submitted.
package transcribe
