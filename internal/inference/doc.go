// Package inference asks a fine-tuned language model, served by an Ollama
// compatible server, to analyze and transcribe phin recordings and to write
// style descriptions.
package inference
