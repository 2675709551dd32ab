package leveldbstore

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/coniks-sys/mssmt-go/mssmt"
	"github.com/coniks-sys/mssmt-go/mssmtlog"
)

const (
	kindLeaf    byte = 'L'
	kindBranch  byte = 'B'
	kindCompact byte = 'C'
)

var rootKey = []byte("root")

func leafKey(hash []byte) []byte    { return append([]byte{kindLeaf}, hash...) }
func branchKey(hash []byte) []byte  { return append([]byte{kindBranch}, hash...) }
func compactKey(hash []byte) []byte { return append([]byte{kindCompact}, hash...) }

// Store is a LevelDB-backed implementation of mssmt.Store, the persistent
// counterpart to mssmt.MemStore. Every node is stored under a key tagging
// its kind and its own hash; the current root is stored separately under a
// fixed key.
type Store struct {
	db     *leveldb.DB
	hasher mssmt.Hasher
	empty  *mssmt.EmptyTree
	wopts  *opt.WriteOptions
	log    *mssmtlog.Logger
}

var _ mssmt.Store = (*Store)(nil)

// Open opens (creating if necessary) the LevelDB database described by
// conf and wraps it as an mssmt.Store for hasher h. If log is nil, storage
// events are discarded.
func Open(conf *Config, h mssmt.Hasher, log *mssmtlog.Logger) (*Store, error) {
	db, err := leveldb.OpenFile(conf.Path, nil)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = mssmtlog.Noop()
	}
	return &Store{
		db:     db,
		hasher: h,
		empty:  mssmt.NewEmptyTree(h),
		wopts:  &opt.WriteOptions{Sync: conf.Sync},
		log:    log,
	}, nil
}

// Close releases the underlying LevelDB handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RootNode() (*mssmt.BranchNode, error) {
	buf, err := s.db.Get(rootKey, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		s.log.Error("read root failed", "err", err)
		return nil, err
	}
	return s.decodeBranch(buf)
}

func (s *Store) Children(depth int, nodeHash []byte) (mssmt.Node, mssmt.Node, error) {
	buf, err := s.db.Get(branchKey(nodeHash), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil, mssmt.ErrNodeNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	branch, err := s.decodeBranch(buf)
	if err != nil {
		return nil, nil, err
	}
	left, err := s.resolve(depth+1, branch.LeftHash)
	if err != nil {
		return nil, nil, err
	}
	right, err := s.resolve(depth+1, branch.RightHash)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// resolve looks up the node named by hash, expected to live at depth, by
// trying each kind in turn: the empty constant, a compact leaf, then
// either a plain leaf (at the tree's full depth) or a branch.
func (s *Store) resolve(depth int, hash []byte) (mssmt.Node, error) {
	if s.empty.IsEmptyAt(depth, hash) {
		if depth == s.empty.Depth() {
			return mssmt.EmptyLeaf(s.hasher), nil
		}
		child := s.empty.Hash(depth + 1)
		return mssmt.NewBranchFromHashes(s.hasher, child, child, 0, 0)
	}
	if buf, err := s.db.Get(compactKey(hash), nil); err == nil {
		return s.decodeCompact(buf)
	} else if err != leveldb.ErrNotFound {
		return nil, err
	}
	if depth == s.empty.Depth() {
		if buf, err := s.db.Get(leafKey(hash), nil); err == nil {
			return s.decodeLeaf(buf)
		} else if err != leveldb.ErrNotFound {
			return nil, err
		}
		return nil, mssmt.ErrNodeNotFound
	}
	if buf, err := s.db.Get(branchKey(hash), nil); err == nil {
		return s.decodeBranch(buf)
	} else if err != leveldb.ErrNotFound {
		return nil, err
	}
	return nil, mssmt.ErrNodeNotFound
}

func (s *Store) InsertLeaf(leaf *mssmt.LeafNode) error {
	if err := s.db.Put(leafKey(leaf.NodeHash()), encodeLeaf(leaf), s.wopts); err != nil {
		s.log.Error("insert leaf failed", "err", err)
		return err
	}
	return nil
}

func (s *Store) InsertBranch(branch *mssmt.BranchNode) error {
	if err := s.db.Put(branchKey(branch.NodeHash()), encodeBranch(branch), s.wopts); err != nil {
		s.log.Error("insert branch failed", "err", err)
		return err
	}
	s.log.Debug("branch materialised", "hash", fmt.Sprintf("%x", branch.NodeHash()))
	return nil
}

func (s *Store) InsertCompactLeaf(c *mssmt.CompactLeafNode) error {
	if err := s.db.Put(compactKey(c.NodeHash()), encodeCompact(c), s.wopts); err != nil {
		s.log.Error("insert compact leaf failed", "err", err)
		return err
	}
	s.log.Debug("compact leaf created", "depth", c.Depth, "hash", fmt.Sprintf("%x", c.NodeHash()))
	return nil
}

func (s *Store) DeleteLeaf(hash []byte) error {
	return s.ignoreNotFound(s.db.Delete(leafKey(hash), s.wopts))
}

func (s *Store) DeleteBranch(hash []byte) error {
	if err := s.ignoreNotFound(s.db.Delete(branchKey(hash), s.wopts)); err != nil {
		return err
	}
	s.log.Debug("branch collapsed", "hash", fmt.Sprintf("%x", hash))
	return nil
}

func (s *Store) DeleteCompactLeaf(hash []byte) error {
	return s.ignoreNotFound(s.db.Delete(compactKey(hash), s.wopts))
}

func (s *Store) UpdateRoot(branch *mssmt.BranchNode) error {
	if err := s.db.Put(rootKey, encodeBranch(branch), s.wopts); err != nil {
		s.log.Error("update root failed", "err", err)
		return err
	}
	return nil
}

func (s *Store) ignoreNotFound(err error) error {
	if err == leveldb.ErrNotFound {
		return nil
	}
	return err
}

// --- serialisation ---
//
// Every record is a flat, hand-rolled, length-prefixed binary encoding of
// a node's fields, keyed by node hash.

func putUint32(buf []byte, v int) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func putUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func encodeLeaf(l *mssmt.LeafNode) []byte {
	buf := make([]byte, 0, 4+len(l.Value)+8)
	buf = putUint32(buf, len(l.Value))
	buf = append(buf, l.Value...)
	buf = putUint64(buf, l.Sum)
	return buf
}

func (s *Store) decodeLeaf(buf []byte) (*mssmt.LeafNode, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("leveldbstore: truncated leaf record")
	}
	vlen := int(binary.BigEndian.Uint32(buf[:4]))
	buf = buf[4:]
	if len(buf) < vlen+8 {
		return nil, fmt.Errorf("leveldbstore: truncated leaf record")
	}
	value := append([]byte(nil), buf[:vlen]...)
	buf = buf[vlen:]
	sum := binary.BigEndian.Uint64(buf[:8])
	return mssmt.NewLeafNode(s.hasher, value, sum), nil
}

func encodeBranch(b *mssmt.BranchNode) []byte {
	hl := len(b.LeftHash)
	buf := make([]byte, 0, 4+2*hl+16)
	buf = putUint32(buf, hl)
	buf = append(buf, b.LeftHash...)
	buf = append(buf, b.RightHash...)
	buf = putUint64(buf, b.LeftSum)
	buf = putUint64(buf, b.RightSum)
	return buf
}

func (s *Store) decodeBranch(buf []byte) (*mssmt.BranchNode, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("leveldbstore: truncated branch record")
	}
	hl := int(binary.BigEndian.Uint32(buf[:4]))
	buf = buf[4:]
	if len(buf) < 2*hl+16 {
		return nil, fmt.Errorf("leveldbstore: truncated branch record")
	}
	left := append([]byte(nil), buf[:hl]...)
	buf = buf[hl:]
	right := append([]byte(nil), buf[:hl]...)
	buf = buf[hl:]
	leftSum := binary.BigEndian.Uint64(buf[:8])
	buf = buf[8:]
	rightSum := binary.BigEndian.Uint64(buf[:8])
	return mssmt.NewBranchFromHashes(s.hasher, left, right, leftSum, rightSum)
}

func encodeCompact(c *mssmt.CompactLeafNode) []byte {
	buf := make([]byte, 0, 4+len(c.Key)+4+len(c.Leaf.Value)+8+4)
	buf = putUint32(buf, len(c.Key))
	buf = append(buf, c.Key...)
	buf = putUint32(buf, len(c.Leaf.Value))
	buf = append(buf, c.Leaf.Value...)
	buf = putUint64(buf, c.Leaf.Sum)
	buf = putUint32(buf, c.Depth)
	return buf
}

func (s *Store) decodeCompact(buf []byte) (*mssmt.CompactLeafNode, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("leveldbstore: truncated compact leaf record")
	}
	klen := int(binary.BigEndian.Uint32(buf[:4]))
	buf = buf[4:]
	if len(buf) < klen+4 {
		return nil, fmt.Errorf("leveldbstore: truncated compact leaf record")
	}
	key := append([]byte(nil), buf[:klen]...)
	buf = buf[klen:]
	vlen := int(binary.BigEndian.Uint32(buf[:4]))
	buf = buf[4:]
	if len(buf) < vlen+8+4 {
		return nil, fmt.Errorf("leveldbstore: truncated compact leaf record")
	}
	value := append([]byte(nil), buf[:vlen]...)
	buf = buf[vlen:]
	sum := binary.BigEndian.Uint64(buf[:8])
	buf = buf[8:]
	depth := int(binary.BigEndian.Uint32(buf[:4]))

	leaf := mssmt.NewLeafNode(s.hasher, value, sum)
	return mssmt.NewCompactLeafNode(s.hasher, s.empty, key, depth, leaf), nil
}
