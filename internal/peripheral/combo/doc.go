// Package combo provides built-in virtual peripherals.
//
// Each constructor returns a peripheral.Definition ready for
// peripheral.Manager.Register:
//
//	DoubleTap      two occurrences from one producer within a window
//	Simultaneous   occurrences from N distinct producers within a window
//	Sequence       an ordered list of matchers completed within a timeout
//	GatedMirror    re-emits events under another producer while a gate is open
//	GatedPlaylist  starts a playlist run on each gate event
//
// Every synthesized payload carries a VirtualPeripheral describing the
// definition that produced it. Time windows are measured on event
// timestamps; pending state is also dropped by timers once a window lapses.
// Instances never hold their lock while emitting, so subscribers may emit
// back into the same combinator.
package combo
