// Package trainer prepares fine-tuning runs of a pretrained checkpoint on
// the phin corpus.
//
// The fine-tuning loop itself is not part of this package. A Trainer lays
// out the output directory, writes the training configuration, optionally
// hands it to an external trainer command and records the completed run.
package trainer
