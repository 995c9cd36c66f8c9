// Package puzzles holds the well-known puzzle programs of the layered
// singleton protocol and a reference implementation of the execution facade
// that runs them.
package puzzles

import (
	"github.com/chain/txvm/crypto/ed25519"

	"datalayer/clvm"
)

// The well-known puzzles ship as fixed program blobs. Everything downstream
// identifies a puzzle by the tree hash of its blob, the way txvm identifies
// a contract by its seed; the blob contents are otherwise opaque here.
var (
	launcherProgram        = []byte("puzzle/singleton-launcher/v1.1")
	singletonProgram       = []byte("puzzle/singleton-top-layer/v1.1")
	stateProgram           = []byte("puzzle/state-layer/v1.1")
	delegationProgram      = []byte("puzzle/delegation-layer/v1")
	adminFilterProgram     = []byte("puzzle/admin-filter/v1")
	writerFilterProgram    = []byte("puzzle/writer-filter/v1")
	oracleProgram          = []byte("puzzle/oracle/v1")
	standardProgram        = []byte("puzzle/standard-p2/v1")
	metadataUpdaterProgram = []byte("puzzle/metadata-updater/v1")
)

var (
	// LauncherPuzzleHash is the well-known constant every object lifecycle
	// starts from. The launcher runs uncurried, so its puzzle hash is the
	// blob's own tree hash.
	LauncherPuzzleHash = clvm.AtomHash(launcherProgram)

	SingletonModHash       = clvm.AtomHash(singletonProgram)
	StateModHash           = clvm.AtomHash(stateProgram)
	DelegationModHash      = clvm.AtomHash(delegationProgram)
	AdminFilterModHash     = clvm.AtomHash(adminFilterProgram)
	WriterFilterModHash    = clvm.AtomHash(writerFilterProgram)
	OracleModHash          = clvm.AtomHash(oracleProgram)
	StandardModHash        = clvm.AtomHash(standardProgram)
	MetadataUpdaterModHash = clvm.AtomHash(metadataUpdaterProgram)
)

// LauncherPuzzle allocates the launcher program.
func LauncherPuzzle(a *clvm.Allocator) clvm.NodePtr { return a.Atom(launcherProgram) }

// MetadataUpdaterPuzzle allocates the default metadata updater program.
func MetadataUpdaterPuzzle(a *clvm.Allocator) clvm.NodePtr { return a.Atom(metadataUpdaterProgram) }

// Quote wraps a value so that running it as a puzzle yields the value
// itself, whatever the solution.
func Quote(a *clvm.Allocator, n clvm.NodePtr) clvm.NodePtr {
	return a.Pair(a.Atom([]byte{0x01}), n)
}

// SingletonStruct allocates (SINGLETON_MOD_HASH . (LAUNCHER_ID . LAUNCHER_PUZZLE_HASH)),
// the identity commitment curried into the singleton top layer.
func SingletonStruct(a *clvm.Allocator, launcherID [32]byte) clvm.NodePtr {
	return a.Pair(
		a.Atom(SingletonModHash[:]),
		a.Pair(a.Atom(launcherID[:]), a.Atom(LauncherPuzzleHash[:])),
	)
}

func singletonStructHash(launcherID [32]byte) [32]byte {
	return clvm.PairHash(
		clvm.AtomHash(SingletonModHash[:]),
		clvm.PairHash(clvm.AtomHash(launcherID[:]), clvm.AtomHash(LauncherPuzzleHash[:])),
	)
}

// CurrySingleton builds the singleton top-layer puzzle around inner.
func CurrySingleton(a *clvm.Allocator, launcherID [32]byte, inner clvm.NodePtr) clvm.NodePtr {
	return clvm.Curry(a, a.Atom(singletonProgram), SingletonStruct(a, launcherID), inner)
}

// SingletonPuzzleHash computes the full puzzle hash of a singleton with the
// given inner puzzle hash, without allocating.
func SingletonPuzzleHash(launcherID, innerHash [32]byte) [32]byte {
	return clvm.CurriedTreeHash(SingletonModHash, singletonStructHash(launcherID), innerHash)
}

// CurryState builds the state layer around inner, committing to metadata and
// the metadata updater.
func CurryState(a *clvm.Allocator, metadata clvm.NodePtr, updaterHash [32]byte, inner clvm.NodePtr) clvm.NodePtr {
	return clvm.Curry(a, a.Atom(stateProgram),
		a.Atom(StateModHash[:]),
		metadata,
		a.Atom(updaterHash[:]),
		inner,
	)
}

// StatePuzzleHash computes the state layer's puzzle hash from component
// hashes.
func StatePuzzleHash(metadataHash, updaterHash, innerHash [32]byte) [32]byte {
	return clvm.CurriedTreeHash(StateModHash,
		clvm.AtomHash(StateModHash[:]),
		metadataHash,
		clvm.AtomHash(updaterHash[:]),
		innerHash,
	)
}

// CurryDelegation builds the delegation layer. Its authority is exactly
// "the revealed inner puzzle hashes to a member of merkleRoot".
func CurryDelegation(a *clvm.Allocator, launcherID, ownerPuzzleHash, merkleRoot [32]byte) clvm.NodePtr {
	return clvm.Curry(a, a.Atom(delegationProgram),
		a.Atom(launcherID[:]),
		a.Atom(ownerPuzzleHash[:]),
		a.Atom(merkleRoot[:]),
	)
}

// DelegationPuzzleHash computes the delegation layer's puzzle hash.
func DelegationPuzzleHash(launcherID, ownerPuzzleHash, merkleRoot [32]byte) [32]byte {
	return clvm.CurriedTreeHash(DelegationModHash,
		clvm.AtomHash(launcherID[:]),
		clvm.AtomHash(ownerPuzzleHash[:]),
		clvm.AtomHash(merkleRoot[:]),
	)
}

// CurryAdmin wraps inner in the admin filter.
func CurryAdmin(a *clvm.Allocator, inner clvm.NodePtr) clvm.NodePtr {
	return clvm.Curry(a, a.Atom(adminFilterProgram), inner)
}

// CurryWriter wraps inner in the writer filter.
func CurryWriter(a *clvm.Allocator, inner clvm.NodePtr) clvm.NodePtr {
	return clvm.Curry(a, a.Atom(writerFilterProgram), inner)
}

// AdminPuzzleHash is the merkle leaf for an admin entry.
func AdminPuzzleHash(innerPuzzleHash [32]byte) [32]byte {
	return clvm.CurriedTreeHash(AdminFilterModHash, innerPuzzleHash)
}

// WriterPuzzleHash is the merkle leaf for a writer entry.
func WriterPuzzleHash(innerPuzzleHash [32]byte) [32]byte {
	return clvm.CurriedTreeHash(WriterFilterModHash, innerPuzzleHash)
}

// CurryOracle builds the fixed-fee oracle puzzle.
func CurryOracle(a *clvm.Allocator, targetPuzzleHash [32]byte, fee uint64) clvm.NodePtr {
	return clvm.Curry(a, a.Atom(oracleProgram),
		a.Atom(targetPuzzleHash[:]),
		a.Atom(clvm.AtomFromUint64(fee)),
	)
}

// OraclePuzzleHash is the merkle leaf for an oracle entry.
func OraclePuzzleHash(targetPuzzleHash [32]byte, fee uint64) [32]byte {
	return clvm.CurriedTreeHash(OracleModHash,
		clvm.AtomHash(targetPuzzleHash[:]),
		clvm.AtomHash(clvm.AtomFromUint64(fee)),
	)
}

// CurryStandard builds the standard spend-authorization puzzle for pub.
func CurryStandard(a *clvm.Allocator, pub ed25519.PublicKey) clvm.NodePtr {
	return clvm.Curry(a, a.Atom(standardProgram), a.Atom(pub))
}

// StandardPuzzleHash computes the standard puzzle's hash for pub.
func StandardPuzzleHash(pub ed25519.PublicKey) [32]byte {
	return clvm.CurriedTreeHash(StandardModHash, clvm.AtomHash(pub))
}

// StandardSolution allocates the standard puzzle's solution: a delegated
// program and its own solution.
func StandardSolution(a *clvm.Allocator, delegated, solution clvm.NodePtr) clvm.NodePtr {
	return a.NewList(delegated, solution)
}

// SignStandard signs the message the standard puzzle's AGG_SIG_ME condition
// commits to: the delegated program's tree hash.
func SignStandard(prv ed25519.PrivateKey, delegatedHash [32]byte) []byte {
	return ed25519.Sign(prv, delegatedHash[:])
}
