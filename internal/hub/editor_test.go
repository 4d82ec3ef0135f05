package hub

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditorHub(policy LockPolicy) (*EditorHub, *recordingPersister) {
	p := &recordingPersister{}
	return NewEditorHub(NewRoomDirectory(), p, policy, nil), p
}

// joinDoc 注册连接并切换到文档，清空加入时收到的初始锁状态
func joinDoc(t *testing.T, h *EditorHub, c *Client, doc string) {
	t.Helper()
	register(h, c)
	inbound(t, h, c, map[string]interface{}{"fileName": doc, "author": c.Name()})
	drainRaw(c)
}

func focus(t *testing.T, h *EditorHub, c *Client, doc string, on bool) {
	t.Helper()
	inbound(t, h, c, map[string]interface{}{"fileName": doc, "author": c.Name(), "editorFocus": on})
}

func sendContent(t *testing.T, h *EditorHub, c *Client, doc, content string) {
	t.Helper()
	inbound(t, h, c, map[string]interface{}{
		"fileName": doc, "author": c.Name(), "content": content, "date": "2024-05-01T10:00:00.000Z",
	})
}

func TestParseLockPolicy(t *testing.T) {
	p, err := ParseLockPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LockPolicyAdvisory, p)

	p, err = ParseLockPolicy("enforced")
	require.NoError(t, err)
	assert.Equal(t, LockPolicyEnforced, p)

	_, err = ParseLockPolicy("strict")
	assert.Error(t, err)
}

func TestEditorHub_JoinSendsInitialLockState(t *testing.T) {
	h, _ := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	joinDoc(t, h, a, "d1")
	focus(t, h, a, "d1", true)
	drainRaw(a)

	c := newTestClient(h, "C")
	register(h, c)
	inbound(t, h, c, map[string]interface{}{"fileName": "d1", "author": "C"})
	assert.Equal(t, []map[string]interface{}{lockMsg(true, "A")}, drain(t, c))

	// 新文档的房间未锁定
	b := newTestClient(h, "B")
	register(h, b)
	inbound(t, h, b, map[string]interface{}{"fileName": "d2"})
	assert.Equal(t, []map[string]interface{}{lockMsg(false, "")}, drain(t, b))
}

func TestEditorHub_AdvisoryScenario(t *testing.T) {
	h, persister := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")

	focus(t, h, a, "d1", true)
	assert.Equal(t, []map[string]interface{}{lockMsg(false, "A")}, drain(t, a))
	assert.Equal(t, []map[string]interface{}{lockMsg(true, "A")}, drain(t, b))

	// advisory：非持锁者的内容照常保存并广播
	sendContent(t, h, b, "d1", "from B")
	assert.Equal(t, []map[string]interface{}{{"content": "from B", "author": "B"}}, drain(t, a))
	assert.Empty(t, drain(t, b), "作者不会收到自己的内容")

	records := persister.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "d1", records[0].DocumentID)
	assert.Equal(t, b.ID(), records[0].Author)
	assert.Equal(t, "B", records[0].AuthorName)
	assert.Equal(t, "from B", records[0].Content)
	assert.True(t, records[0].Timestamp.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

	unregister(h, a)
	assert.Equal(t, []map[string]interface{}{lockMsg(false, "")}, drain(t, b))
	room := h.Rooms().Get("d1")
	require.NotNil(t, room)
	assert.Nil(t, room.LockHolder())
	assert.Equal(t, 1, room.Size())
	assert.True(t, isClosed(a))
}

func TestEditorHub_EnforcedScenario(t *testing.T) {
	h, persister := newTestEditorHub(LockPolicyEnforced)
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")

	focus(t, h, a, "d1", true)
	drainRaw(a)
	drainRaw(b)

	// enforced：其他人持锁时内容被丢弃
	sendContent(t, h, b, "d1", "from B")
	assert.Empty(t, drain(t, a))
	assert.Empty(t, persister.Records())

	// 持锁者的内容正常广播
	sendContent(t, h, a, "d1", "from A")
	assert.Equal(t, []map[string]interface{}{{"content": "from A", "author": "A"}}, drain(t, b))
	require.Len(t, persister.Records(), 1)

	// 未锁定时任何成员都可以写
	focus(t, h, a, "d1", false)
	drainRaw(a)
	drainRaw(b)
	sendContent(t, h, b, "d1", "B again")
	assert.Equal(t, []map[string]interface{}{{"content": "B again", "author": "B"}}, drain(t, a))
	assert.Len(t, persister.Records(), 2)

	unregister(h, a)
	assert.Empty(t, drain(t, b), "A 不再持锁，离开时不发送解锁通知")
}

func TestEditorHub_LockHeldByAnotherIsNoop(t *testing.T) {
	h, _ := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")
	focus(t, h, a, "d1", true)
	drainRaw(a)
	drainRaw(b)

	focus(t, h, b, "d1", true)
	assert.Empty(t, drain(t, a))
	assert.Empty(t, drain(t, b))
	assert.Same(t, a, h.Rooms().Get("d1").LockHolder())
}

func TestEditorHub_ReacquireByHolderRenotifies(t *testing.T) {
	h, _ := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")
	focus(t, h, a, "d1", true)
	drainRaw(a)
	drainRaw(b)

	focus(t, h, a, "d1", true)
	assert.Equal(t, []map[string]interface{}{lockMsg(false, "A")}, drain(t, a))
	assert.Equal(t, []map[string]interface{}{lockMsg(true, "A")}, drain(t, b))
	assert.Same(t, a, h.Rooms().Get("d1").LockHolder())
}

func TestEditorHub_ReleaseRules(t *testing.T) {
	h, _ := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")
	focus(t, h, a, "d1", true)
	drainRaw(a)
	drainRaw(b)

	// 非持锁者释放：无效果
	focus(t, h, b, "d1", false)
	assert.Empty(t, drain(t, a))
	assert.Empty(t, drain(t, b))
	assert.Same(t, a, h.Rooms().Get("d1").LockHolder())

	// 携带内容的失焦不会释放锁，但内容照常广播
	inbound(t, h, a, map[string]interface{}{"fileName": "d1", "author": "A", "editorFocus": false, "content": "last words"})
	assert.Empty(t, drain(t, a))
	assert.Equal(t, []map[string]interface{}{{"content": "last words", "author": "A"}}, drain(t, b))
	assert.Same(t, a, h.Rooms().Get("d1").LockHolder())

	// 持锁者无内容失焦：所有成员收到解锁通知
	focus(t, h, a, "d1", false)
	assert.Equal(t, []map[string]interface{}{lockMsg(false, "")}, drain(t, a))
	assert.Equal(t, []map[string]interface{}{lockMsg(false, "")}, drain(t, b))
	assert.Nil(t, h.Rooms().Get("d1").LockHolder())
}

func TestEditorHub_BlurWithEmptyContentReleasesLock(t *testing.T) {
	h, persister := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")
	focus(t, h, a, "d1", true)
	drainRaw(a)
	drainRaw(b)

	// 空内容照常清空文档，同时释放锁
	inbound(t, h, a, map[string]interface{}{"fileName": "d1", "author": "A", "editorFocus": false, "content": ""})
	assert.Equal(t, []map[string]interface{}{lockMsg(false, "")}, drain(t, a))
	assert.Equal(t, []map[string]interface{}{
		{"content": "", "author": "A"},
		lockMsg(false, ""),
	}, drain(t, b))
	assert.Nil(t, h.Rooms().Get("d1").LockHolder())
	require.Len(t, persister.Records(), 1)
	assert.Equal(t, "", persister.Records()[0].Content)
}

func TestEditorHub_FileNameAliasesShareOneRoom(t *testing.T) {
	for _, policy := range []LockPolicy{LockPolicyAdvisory, LockPolicyEnforced} {
		t.Run(string(policy), func(t *testing.T) {
			h, persister := newTestEditorHub(policy)
			a := newTestClient(h, "A")
			b := newTestClient(h, "B")
			joinDoc(t, h, a, "d1")
			joinDoc(t, h, b, "d1.txt")

			assert.Equal(t, 1, h.Rooms().Len())
			room := h.Rooms().Get("d1")
			require.NotNil(t, room)
			assert.True(t, room.Has(a))
			assert.True(t, room.Has(b))
			assert.Nil(t, h.Rooms().Get("d1.txt"))
			assert.Equal(t, "d1", b.DocumentID())

			// 两个别名共用一把锁
			focus(t, h, a, "d1", true)
			assert.Equal(t, []map[string]interface{}{lockMsg(true, "A")}, drain(t, b))
			drainRaw(a)
			focus(t, h, b, "d1.txt", true)
			assert.Same(t, a, room.LockHolder())
			assert.Empty(t, drain(t, a))
			assert.Empty(t, drain(t, b))

			// 持锁者在别名下的内容会转发给另一个别名的成员
			sendContent(t, h, a, "d1", "shared")
			assert.Equal(t, []map[string]interface{}{{"content": "shared", "author": "A"}}, drain(t, b))
			sendContent(t, h, b, "d1.txt", "from b")
			if policy == LockPolicyAdvisory {
				assert.Equal(t, []map[string]interface{}{{"content": "from b", "author": "B"}}, drain(t, a))
			} else {
				assert.Empty(t, drain(t, a))
			}
			for _, r := range persister.Records() {
				assert.Equal(t, "d1", r.DocumentID)
			}
		})
	}
}

func TestEditorHub_InvalidFileNameIsDropped(t *testing.T) {
	h, persister := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	register(h, a)

	for _, name := range []string{"..", "/", ".txt"} {
		inbound(t, h, a, map[string]interface{}{"fileName": name, "author": "A", "content": "x"})
	}
	assert.Empty(t, drain(t, a))
	assert.Zero(t, h.Rooms().Len())
	assert.Empty(t, persister.Records())
	assert.Empty(t, a.DocumentID())
}

func TestEditorHub_SetDocumentUnchangedIsIdempotent(t *testing.T) {
	h, _ := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")

	inbound(t, h, a, map[string]interface{}{"fileName": "d1", "author": "A"})
	assert.Empty(t, drain(t, a), "同一文档不会重发初始锁状态")
	assert.Empty(t, drain(t, b))
	assert.Equal(t, 2, h.Rooms().Get("d1").Size())
	assert.Equal(t, "d1", a.DocumentID())
}

func TestEditorHub_SwitchDocumentReleasesLockInOldRoom(t *testing.T) {
	h, _ := newTestEditorHub(LockPolicyAdvisory)
	closed := make(chan string, 4)
	h.Rooms().OnRoomClosed(func(doc string) { closed <- doc })

	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")
	focus(t, h, a, "d1", true)
	drainRaw(a)
	drainRaw(b)

	inbound(t, h, a, map[string]interface{}{"fileName": "d2", "author": "A"})
	assert.Equal(t, []map[string]interface{}{lockMsg(false, "")}, drain(t, b))
	assert.Equal(t, []map[string]interface{}{lockMsg(false, "")}, drain(t, a), "A 收到 d2 的初始锁状态")

	d1 := h.Rooms().Get("d1")
	require.NotNil(t, d1)
	assert.False(t, d1.Has(a))
	assert.Nil(t, d1.LockHolder())
	assert.True(t, h.Rooms().Get("d2").Has(a))

	// B 离开后 d1 变空并被删除
	unregister(h, b)
	assert.Nil(t, h.Rooms().Get("d1"))
	assert.Equal(t, "d1", <-closed)
	assert.Equal(t, []string{"d2"}, h.Rooms().ActiveDocumentIDs())
}

func TestEditorHub_MalformedAndUnroutableMessagesAreDropped(t *testing.T) {
	h, persister := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	register(h, a)

	h.handle(HubMessage{Type: MessageInbound, Client: a, RawData: []byte("{not json")})
	inbound(t, h, a, map[string]interface{}{"author": "A", "content": "orphan"})
	assert.Empty(t, drain(t, a))
	assert.Zero(t, h.Rooms().Len())
	assert.Empty(t, persister.Records())

	// 连接仍然可用
	inbound(t, h, a, map[string]interface{}{"fileName": "d1", "author": "A"})
	assert.Len(t, drain(t, a), 1)
	assert.Equal(t, 1, h.Rooms().Len())
}

func TestEditorHub_UnregisteredClientIsIgnored(t *testing.T) {
	h, persister := newTestEditorHub(LockPolicyAdvisory)
	stranger := newTestClient(h, "S")

	inbound(t, h, stranger, map[string]interface{}{"fileName": "d1", "content": "x"})
	assert.Zero(t, h.Rooms().Len())
	assert.Empty(t, persister.Records())

	unregister(h, stranger)
	assert.True(t, isClosed(stranger))
}

func TestEditorHub_HistoryIsAppendedInCallOrder(t *testing.T) {
	h, persister := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")

	const n = 20
	for i := 0; i < n; i++ {
		sendContent(t, h, a, "d1", fmt.Sprintf("v%d", i))
	}

	records := persister.Records()
	require.Len(t, records, n)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("v%d", i), r.Content)
	}
	assert.Len(t, drainRaw(b), n)
}

func TestEditorHub_ContentWithoutAuthorUsesConnectionName(t *testing.T) {
	h, _ := newTestEditorHub(LockPolicyAdvisory)
	a := NewClient(h, nil, "", nil)
	b := newTestClient(h, "B")
	register(h, a)
	inbound(t, h, a, map[string]interface{}{"fileName": "d1"})
	joinDoc(t, h, b, "d1")
	drainRaw(a)

	inbound(t, h, a, map[string]interface{}{"fileName": "d1", "content": "anon"})
	assert.Equal(t, []map[string]interface{}{{"content": "anon", "author": a.ID()}}, drain(t, b))
}

func TestEditorHub_FullBufferPeerIsSkipped(t *testing.T) {
	h, persister := newTestEditorHub(LockPolicyAdvisory)
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	joinDoc(t, h, a, "d1")
	joinDoc(t, h, b, "d1")

	for i := 0; i < sendBufferSize+10; i++ {
		sendContent(t, h, a, "d1", "x")
	}
	assert.Len(t, drainRaw(b), sendBufferSize)
	assert.Len(t, persister.Records(), sendBufferSize+10, "慢客户端不影响持久化")
}

func TestEditorHub_RunLoop(t *testing.T) {
	h, persister := newTestEditorHub(LockPolicyAdvisory)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	require.True(t, h.Register(a))
	require.True(t, h.Register(b))
	for _, c := range []*Client{a, b} {
		require.True(t, h.Enqueue(HubMessage{Type: MessageInbound, Client: c, RawData: []byte(`{"fileName":"d1"}`)}))
	}
	require.True(t, h.Enqueue(HubMessage{Type: MessageInbound, Client: a, RawData: []byte(`{"fileName":"d1","author":"A","content":"hello"}`)}))

	select {
	case <-b.Outbound(): // 初始锁状态
	case <-time.After(2 * time.Second):
		t.Fatal("no initial lock state")
	}
	select {
	case msg := <-b.Outbound():
		assert.JSONEq(t, `{"content":"hello","author":"A"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("content was not broadcast")
	}
	assert.Len(t, persister.Records(), 1)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	assert.True(t, isClosed(a))
	assert.True(t, isClosed(b))
	assert.False(t, h.Enqueue(HubMessage{Type: MessageInbound, Client: a}))
	assert.False(t, h.Register(newTestClient(h, "late")))

	// Hub 停止后注销不会阻塞
	h.Unregister(a)
}
