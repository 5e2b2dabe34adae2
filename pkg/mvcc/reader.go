// pkg/mvcc/reader.go
package mvcc

// ReadTracker pins one story against garbage collection on behalf of one
// transaction that has read it, per spec.md §4.2. It is a node in two
// independent MRU-ordered doubly-linked lists at once: the story's reader
// list (readers currently pinning this version) and the transaction's read
// set (versions this transaction has read).
type ReadTracker struct {
	reader *Transaction
	story  *Story

	prevInStory, nextInStory *ReadTracker
	prevInTxn, nextInTxn     *ReadTracker
}

// trackRead records that txn has read story, deduplicating against an
// existing tracker. Per spec.md §4.2, lookup is O(min(|story.readers|,
// |txn.readSet|)): both lists are walked in parallel from the front, and
// whichever side finds a match first wins, since a hit on either list
// proves the pair is already tracked.
func trackRead(txn *Transaction, story *Story) *ReadTracker {
	a := story.readers
	b := txn.readSetHead
	for a != nil || b != nil {
		if a != nil {
			if a.reader == txn {
				moveReaderToFront(story, txn, a)
				return a
			}
			a = a.nextInStory
		}
		if b != nil {
			if b.story == story {
				moveReaderToFront(story, txn, b)
				return b
			}
			b = b.nextInTxn
		}
	}

	rt := &ReadTracker{reader: txn, story: story}
	prependStoryReader(story, rt)
	prependTxnReader(txn, rt)
	return rt
}

func moveReaderToFront(story *Story, txn *Transaction, rt *ReadTracker) {
	if story.readers != rt {
		removeStoryReader(story, rt)
		prependStoryReader(story, rt)
	}
	if txn.readSetHead != rt {
		removeTxnReader(txn, rt)
		prependTxnReader(txn, rt)
	}
}

func prependStoryReader(story *Story, rt *ReadTracker) {
	rt.prevInStory = nil
	rt.nextInStory = story.readers
	if story.readers != nil {
		story.readers.prevInStory = rt
	}
	story.readers = rt
}

func removeStoryReader(story *Story, rt *ReadTracker) {
	if rt.prevInStory != nil {
		rt.prevInStory.nextInStory = rt.nextInStory
	} else {
		story.readers = rt.nextInStory
	}
	if rt.nextInStory != nil {
		rt.nextInStory.prevInStory = rt.prevInStory
	}
	rt.prevInStory, rt.nextInStory = nil, nil
}

func prependTxnReader(txn *Transaction, rt *ReadTracker) {
	rt.prevInTxn = nil
	rt.nextInTxn = txn.readSetHead
	if txn.readSetHead != nil {
		txn.readSetHead.prevInTxn = rt
	}
	txn.readSetHead = rt
}

func removeTxnReader(txn *Transaction, rt *ReadTracker) {
	if rt.prevInTxn != nil {
		rt.prevInTxn.nextInTxn = rt.nextInTxn
	} else {
		txn.readSetHead = rt.nextInTxn
	}
	if rt.nextInTxn != nil {
		rt.nextInTxn.prevInTxn = rt.prevInTxn
	}
	rt.prevInTxn, rt.nextInTxn = nil, nil
}

// releaseAllReaders drops every tracker in txn's read set, unlinking each
// from its story too. Called when a transaction commits, aborts, or rolls
// back, since none of those leave it still needing repeatable reads.
func releaseAllReaders(txn *Transaction) {
	for rt := txn.readSetHead; rt != nil; {
		next := rt.nextInTxn
		removeStoryReader(rt.story, rt)
		rt = next
	}
	txn.readSetHead = nil
}
