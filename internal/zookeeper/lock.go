// internal/zookeeper/lock.go
package zookeeper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/distributed_locks" // 所有分布式锁的根节点
)

// ErrLockBusy 表示锁已被其他实例持有。
var ErrLockBusy = errors.New("lock is held by another instance")

// DistributedLock 定义了一个分布式锁对象
type DistributedLock struct {
	conn     *Conn  // ZooKeeper连接
	path     string // 锁的路径，例如 /distributed_locks/checkout-expiry-sweep
	lockNode string // 成功获取锁后，自己创建的节点路径
}

// NewDistributedLock 创建一个新的分布式锁实例
func NewDistributedLock(conn *Conn, resourceID string) *DistributedLock {
	// 确保根节点存在
	// 在生产环境中，这个操作通常由初始化脚本完成
	if exists, _, err := conn.Exists(lockRoot); err != nil || !exists {
		_, createErr := conn.Create(lockRoot, []byte(""), 0, zk.WorldACL(zk.PermAll))
		if createErr != nil && createErr != zk.ErrNodeExists {
			panic(fmt.Sprintf("Failed to create lock root node: %v", createErr))
		}
	}

	lockPath := lockRoot + "/" + resourceID

	// 确保锁的父节点路径存在
	if exists, _, err := conn.Exists(lockPath); err != nil || !exists {
		_, createErr := conn.Create(lockPath, []byte(""), 0, zk.WorldACL(zk.PermAll))
		if createErr != nil && createErr != zk.ErrNodeExists {
			panic(fmt.Sprintf("Failed to create lock path node %s: %v", lockPath, createErr))
		}
	}

	return &DistributedLock{
		conn: conn,
		path: lockPath,
	}
}

// createNode 在锁路径下创建临时顺序节点
func (l *DistributedLock) createNode() error {
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath
	return nil
}

// isLowest 判断自己创建的节点是否是序号最小的节点
func (l *DistributedLock) isLowest() (bool, int, []string, error) {
	children, _, err := l.conn.Children(l.path)
	if err != nil {
		return false, -1, nil, fmt.Errorf("failed to get children nodes: %w", err)
	}
	sort.Strings(children)

	myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
	for i, child := range children {
		if child == myNodeName {
			return i == 0, i, children, nil
		}
	}
	return false, -1, children, errors.New("own lock node disappeared")
}

// TryLock 尝试获取锁，立刻返回。锁被占用时返回 ErrLockBusy，不会阻塞等待。
func (l *DistributedLock) TryLock() error {
	if err := l.createNode(); err != nil {
		return err
	}

	lowest, _, _, err := l.isLowest()
	if err != nil {
		_ = l.Unlock()
		return err
	}
	if !lowest {
		// 不是最小节点，放弃排队，让持有者继续工作
		_ = l.Unlock()
		return ErrLockBusy
	}
	return nil
}

// Lock 尝试获取锁，如果获取不到则阻塞等待
func (l *DistributedLock) Lock() error {
	if err := l.createNode(); err != nil {
		return err
	}

	for {
		lowest, myIndex, children, err := l.isLowest()
		if err != nil {
			return err
		}
		if lowest {
			// 是最小节点，成功获取锁
			return nil
		}

		// 不是最小节点，监听前一个节点
		prevNodePath := l.path + "/" + children[myIndex-1]

		// 使用 ExistsW 来设置一次性的Watcher
		_, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			// 如果在前一个节点检查时它刚好被删除了，就重试循环
			if err == zk.ErrNoNode {
				continue
			}
			return fmt.Errorf("failed to watch previous node: %w", err)
		}

		// 阻塞等待事件
		select {
		case event := <-eventChan:
			// 如果前一个节点被删除，我们就收到通知，重新进入循环去竞争锁
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-time.After(30 * time.Second): // 设置超时，防止死等
			return errors.New("timeout waiting for lock")
		}
	}
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}
