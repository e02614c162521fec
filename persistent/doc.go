/*
Package persistent groups immutable persistent data structures.

Immutable persistent data structures are data structures which can be copied and modified
efficiently, leaving the original unchanged. *Persistent* immutable data-structures offer
structural sharing, which means that if two data structures are mostly copies of each other,
most of the memory they take up will be shared between them.

asynclist uses them to keep generations of section contents: the generation
currently visible to readers and the one being edited are different values of
the same structure, and switching between them is an assignment.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package persistent
