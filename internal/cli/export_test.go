package cli

// Export internal functions for testing.

// RunGenerate exports runGenerate for testing.
var RunGenerate = runGenerate

// GenerateOptions exports generateOptions for testing.
type GenerateOptions = generateOptions

// RunServe exports runServe for testing.
var RunServe = runServe

// RunPreview exports runPreview for testing.
var RunPreview = runPreview

// RunConfigSet exports runConfigSet for testing.
var RunConfigSet = runConfigSet

// RunConfigGet exports runConfigGet for testing.
var RunConfigGet = runConfigGet

// RunConfigList exports runConfigList for testing.
var RunConfigList = runConfigList

// DefaultOutputName exports defaultOutputName for testing.
var DefaultOutputName = defaultOutputName

// WriteFileAtomic exports writeFileAtomic for testing.
var WriteFileAtomic = writeFileAtomic
